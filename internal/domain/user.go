package domain

// UserProfile is the public projection of a user row.
type UserProfile struct {
	ID              int64
	Username        string
	Title           *string
	Bio             *string
	ProfilePicture  *string
	BackgroundPhoto *string
	FavoriteMovieID *int64
}

// Credentials holds what the login boundary needs to verify a password.
type Credentials struct {
	UserID       int64
	PasswordHash string
}

// ProfileMedia identifies which user image field an upload replaces.
type ProfileMedia int

const (
	MediaProfilePicture ProfileMedia = iota + 1
	MediaBackground
)
