package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/truereview/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist or is not
	// owned by the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// repository code runs standalone or inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Catalog   *CatalogRepository
	Watched   *WatchedRepository
	Users     *UsersRepository
	Follows   *FollowsRepository
	Dashboard *DashboardRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Catalog:   &CatalogRepository{db: pool},
		Watched:   &WatchedRepository{db: pool},
		Users:     &UsersRepository{db: pool},
		Follows:   &FollowsRepository{db: pool},
		Dashboard: &DashboardRepository{pool: pool},
	}
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
