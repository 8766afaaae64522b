package domain

import "time"

// Movie is a canonical catalog record. The web application never writes it.
type Movie struct {
	ID          int64
	Title       string
	PosterURL   string
	ReleaseDate time.Time
}

// PresentedMovie is a Movie decorated with request-time display fields.
// CurrentYear and FullReleaseDate are only populated by search results.
type PresentedMovie struct {
	Movie
	ReleaseYear     int
	CurrentYear     bool
	FullReleaseDate string
}
