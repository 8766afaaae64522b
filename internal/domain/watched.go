package domain

import "time"

// WatchEntry is a user's logged rating of one catalog movie.
type WatchEntry struct {
	ID        int64
	UserID    int64
	MovieID   int64
	Rating    int
	Review    *string
	CreatedAt time.Time
}

// WatchEntrySummary is the list projection of an entry joined with its movie.
type WatchEntrySummary struct {
	ID         int64
	Rating     int
	MovieTitle string
	PosterURL  string
}

// WatchEntryDetail is a single entry joined with its movie.
type WatchEntryDetail struct {
	ID          int64
	UserID      int64
	MovieID     int64
	Rating      int
	Review      *string
	MovieTitle  string
	PosterURL   string
	ReleaseDate time.Time
}
