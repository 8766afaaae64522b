package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/truereview/internal/domain"
)

// WatchedRepository persists watch entries in watched_list.
type WatchedRepository struct {
	db querier
}

// WatchedCreateParams bundles the fields required to log a movie.
type WatchedCreateParams struct {
	UserID  int64
	MovieID int64
	Rating  int
	Review  *string
}

// WatchedUpdateParams identifies an owned entry and its new rating and review.
type WatchedUpdateParams struct {
	WatchedID int64
	UserID    int64
	Rating    int
	Review    *string
}

// Create inserts a new entry and returns its id. Duplicate (user, movie)
// pairs are allowed. An unknown movie or user yields ErrNotFound.
func (r *WatchedRepository) Create(ctx context.Context, params WatchedCreateParams) (int64, error) {
	const sql = `
        INSERT INTO watched_list (user_id, movie_id, user_rating, review)
        VALUES ($1,$2,$3,$4)
        RETURNING watched_id
    `
	var id int64
	err := r.db.QueryRow(ctx, sql, params.UserID, params.MovieID, params.Rating, params.Review).Scan(&id)
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("insert watched entry: %w", err)
	}
	return id, nil
}

// Get fetches one entry owned by userID joined with its movie.
func (r *WatchedRepository) Get(ctx context.Context, watchedID, userID int64) (domain.WatchEntryDetail, error) {
	const sql = `
        SELECT wl.watched_id, wl.user_id, wl.movie_id, wl.user_rating, wl.review,
               am.movie_title, am.poster_full_url, am.movie_release_date
        FROM watched_list wl
        JOIN all_movies am ON wl.movie_id = am.movie_id
        WHERE wl.watched_id = $1 AND wl.user_id = $2
    `
	var d domain.WatchEntryDetail
	err := r.db.QueryRow(ctx, sql, watchedID, userID).Scan(
		&d.ID,
		&d.UserID,
		&d.MovieID,
		&d.Rating,
		&d.Review,
		&d.MovieTitle,
		&d.PosterURL,
		&d.ReleaseDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WatchEntryDetail{}, ErrNotFound
		}
		return domain.WatchEntryDetail{}, err
	}
	return d, nil
}

// List returns every entry of userID, most recently created first.
func (r *WatchedRepository) List(ctx context.Context, userID int64) ([]domain.WatchEntrySummary, error) {
	const sql = `
        SELECT wl.watched_id, wl.user_rating, am.movie_title, am.poster_full_url
        FROM watched_list wl
        JOIN all_movies am ON wl.movie_id = am.movie_id
        WHERE wl.user_id = $1
        ORDER BY wl.watched_id DESC
    `
	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("list watched entries: %w", err)
	}
	defer rows.Close()

	items := make([]domain.WatchEntrySummary, 0)
	for rows.Next() {
		var s domain.WatchEntrySummary
		if err := rows.Scan(&s.ID, &s.Rating, &s.MovieTitle, &s.PosterURL); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update rewrites rating and review of an owned entry. A foreign or missing
// entry affects zero rows.
func (r *WatchedRepository) Update(ctx context.Context, params WatchedUpdateParams) (int64, error) {
	const sql = `
        UPDATE watched_list
        SET user_rating = $1,
            review = $2
        WHERE watched_id = $3 AND user_id = $4
    `
	tag, err := r.db.Exec(ctx, sql, params.Rating, params.Review, params.WatchedID, params.UserID)
	if err != nil {
		return 0, fmt.Errorf("update watched entry: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes an owned entry. A foreign or missing entry affects zero rows.
func (r *WatchedRepository) Delete(ctx context.Context, watchedID, userID int64) (int64, error) {
	const sql = `DELETE FROM watched_list WHERE watched_id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, sql, watchedID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete watched entry: %w", err)
	}
	return tag.RowsAffected(), nil
}

// WatchStats counts the entries of userID and averages their ratings to two
// decimals. The average is NULL, and so nil, when there are no entries.
func (r *WatchedRepository) WatchStats(ctx context.Context, userID int64) (domain.WatchStats, error) {
	const sql = `
        SELECT COUNT(*)::int8 AS total_movies,
               ROUND(AVG(user_rating)::numeric, 2)::float8 AS avg_rating
        FROM watched_list
        WHERE user_id = $1
    `
	var stats domain.WatchStats
	if err := r.db.QueryRow(ctx, sql, userID).Scan(&stats.Total, &stats.Average); err != nil {
		return domain.WatchStats{}, fmt.Errorf("aggregate watched entries: %w", err)
	}
	return stats, nil
}

// LastWatched returns the entry with the highest id for userID, or nil.
func (r *WatchedRepository) LastWatched(ctx context.Context, userID int64) (*domain.LastWatched, error) {
	const sql = `
        SELECT wl.user_rating, am.movie_title, am.poster_full_url
        FROM watched_list wl
        JOIN all_movies am ON wl.movie_id = am.movie_id
        WHERE wl.user_id = $1
        ORDER BY wl.watched_id DESC
        LIMIT 1
    `
	var last domain.LastWatched
	err := r.db.QueryRow(ctx, sql, userID).Scan(&last.Rating, &last.MovieTitle, &last.PosterURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last watched entry: %w", err)
	}
	return &last, nil
}
