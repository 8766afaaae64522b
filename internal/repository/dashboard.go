package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/truereview/internal/domain"
)

// DashboardRepository composes the dashboard reads inside one snapshot.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// ReadSnapshot runs fn inside a REPEATABLE READ, READ ONLY transaction so
// every query fn issues observes the same committed state.
func (r *DashboardRepository) ReadSnapshot(ctx context.Context, fn func(DashboardQueries) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin dashboard snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := dashboardQueries{
		users:   &UsersRepository{db: tx},
		follows: &FollowsRepository{db: tx},
		watched: &WatchedRepository{db: tx},
	}
	if err := fn(q); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type dashboardQueries struct {
	users   *UsersRepository
	follows *FollowsRepository
	watched *WatchedRepository
}

func (q dashboardQueries) Profile(ctx context.Context, userID int64) (domain.UserProfile, error) {
	return q.users.Profile(ctx, userID)
}

func (q dashboardQueries) FollowCounts(ctx context.Context, userID int64) (*domain.FollowCounts, error) {
	return q.follows.FollowCounts(ctx, userID)
}

func (q dashboardQueries) WatchStats(ctx context.Context, userID int64) (domain.WatchStats, error) {
	return q.watched.WatchStats(ctx, userID)
}

func (q dashboardQueries) FavoriteTitle(ctx context.Context, userID int64) (*string, error) {
	return q.users.FavoriteTitle(ctx, userID)
}

func (q dashboardQueries) LastWatched(ctx context.Context, userID int64) (*domain.LastWatched, error) {
	return q.watched.LastWatched(ctx, userID)
}
