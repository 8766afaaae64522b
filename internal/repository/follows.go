package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/truereview/internal/domain"
)

// FollowsRepository manages the follower graph in user_follows.
type FollowsRepository struct {
	db querier
}

// FollowCounts returns how many users follow userID and how many it follows.
// Both counts come from independent subqueries so neither inflates the other.
// A missing user yields nil.
func (r *FollowsRepository) FollowCounts(ctx context.Context, userID int64) (*domain.FollowCounts, error) {
	const sql = `
        SELECT
            (SELECT COUNT(*) FROM user_follows f WHERE f.following_id = u.user_id)::int8 AS follower_count,
            (SELECT COUNT(*) FROM user_follows f WHERE f.follower_id = u.user_id)::int8 AS following_count
        FROM users u
        WHERE u.user_id = $1
    `
	var counts domain.FollowCounts
	if err := r.db.QueryRow(ctx, sql, userID).Scan(&counts.Followers, &counts.Following); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("follow counts: %w", err)
	}
	return &counts, nil
}

// Follow records that follower follows following. Repeating an existing edge
// is a no-op. Either user missing yields ErrNotFound.
func (r *FollowsRepository) Follow(ctx context.Context, followerID, followingID int64) error {
	const sql = `
        INSERT INTO user_follows (follower_id, following_id)
        VALUES ($1,$2)
        ON CONFLICT (follower_id, following_id) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, sql, followerID, followingID); err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return ErrNotFound
		}
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}
