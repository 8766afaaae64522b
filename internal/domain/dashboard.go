package domain

// FollowCounts holds both directions of a user's follow edges.
type FollowCounts struct {
	Followers int64
	Following int64
}

// WatchStats aggregates a user's entries. Average is nil when Total is zero.
type WatchStats struct {
	Total   int64
	Average *float64
}

// LastWatched is the most recently created entry joined with its movie.
type LastWatched struct {
	Rating     int
	MovieTitle string
	PosterURL  string
}

// Dashboard is the composed summary shown on a user's profile page.
type Dashboard struct {
	User               UserProfile
	Follows            FollowCounts
	Stats              WatchStats
	FavoriteMovieTitle *string
	LastWatched        *LastWatched
}
