package repository

import (
	"context"

	"github.com/Clark-Hu/truereview/internal/domain"
)

// The interfaces below are the persistence ports the services depend on. The
// pgx repositories in this package implement them, as does the in-memory
// store in the memory subpackage.

// CatalogStore reads the movie catalog.
type CatalogStore interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Movie, error)
	GetByID(ctx context.Context, id int64) (domain.Movie, error)
}

// WatchedStore persists watch entries. Every method except Create is scoped
// by the owning user; Update and Delete report rows affected.
type WatchedStore interface {
	Create(ctx context.Context, params WatchedCreateParams) (int64, error)
	Get(ctx context.Context, watchedID, userID int64) (domain.WatchEntryDetail, error)
	List(ctx context.Context, userID int64) ([]domain.WatchEntrySummary, error)
	Update(ctx context.Context, params WatchedUpdateParams) (int64, error)
	Delete(ctx context.Context, watchedID, userID int64) (int64, error)
}

// UserStore reads profiles and credentials and records profile media.
type UserStore interface {
	Profile(ctx context.Context, userID int64) (domain.UserProfile, error)
	CredentialsByEmail(ctx context.Context, email string) (domain.Credentials, error)
	SetMedia(ctx context.Context, userID int64, media domain.ProfileMedia, filename string) (int64, error)
}

// DashboardQueries are the independent reads composed into a dashboard.
type DashboardQueries interface {
	Profile(ctx context.Context, userID int64) (domain.UserProfile, error)
	// FollowCounts returns nil when the counts query yields no row.
	FollowCounts(ctx context.Context, userID int64) (*domain.FollowCounts, error)
	WatchStats(ctx context.Context, userID int64) (domain.WatchStats, error)
	FavoriteTitle(ctx context.Context, userID int64) (*string, error)
	LastWatched(ctx context.Context, userID int64) (*domain.LastWatched, error)
}

// DashboardStore runs fn against a consistent read view of the data.
type DashboardStore interface {
	ReadSnapshot(ctx context.Context, fn func(DashboardQueries) error) error
}
