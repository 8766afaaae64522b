package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/truereview/internal/domain"
)

// UsersRepository reads and updates user rows.
type UsersRepository struct {
	db querier
}

// UserCreateParams captures a new account. PasswordHash must already be hashed.
type UserCreateParams struct {
	Username      string
	Email         string
	PasswordHash  string
	Title         *string
	Bio           *string
	FavoriteMovie *int64
}

// Create inserts a user and returns its id. Duplicate username or email
// yields ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (int64, error) {
	const sql = `
        INSERT INTO users (username, email, password_hash, title, bio, favorite_movie)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING user_id
    `
	var id int64
	err := r.db.QueryRow(ctx, sql,
		params.Username,
		strings.ToLower(params.Email),
		params.PasswordHash,
		params.Title,
		params.Bio,
		params.FavoriteMovie,
	).Scan(&id)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// Profile returns the public projection of a user.
func (r *UsersRepository) Profile(ctx context.Context, userID int64) (domain.UserProfile, error) {
	const sql = `
        SELECT user_id, username, title, bio, profile_picture, profile_background_photo, favorite_movie
        FROM users
        WHERE user_id = $1
    `
	var p domain.UserProfile
	err := r.db.QueryRow(ctx, sql, userID).Scan(
		&p.ID,
		&p.Username,
		&p.Title,
		&p.Bio,
		&p.ProfilePicture,
		&p.BackgroundPhoto,
		&p.FavoriteMovieID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, ErrNotFound
		}
		return domain.UserProfile{}, err
	}
	return p, nil
}

// CredentialsByEmail looks up the stored password hash for an email address.
func (r *UsersRepository) CredentialsByEmail(ctx context.Context, email string) (domain.Credentials, error) {
	const sql = `SELECT user_id, password_hash FROM users WHERE email = $1`
	var c domain.Credentials
	err := r.db.QueryRow(ctx, sql, strings.ToLower(strings.TrimSpace(email))).Scan(&c.UserID, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credentials{}, ErrNotFound
		}
		return domain.Credentials{}, err
	}
	return c, nil
}

// FavoriteTitle resolves the user's favorite movie to its title. It returns
// nil when no favorite is set or the reference points at no catalog row.
func (r *UsersRepository) FavoriteTitle(ctx context.Context, userID int64) (*string, error) {
	const sql = `
        SELECT am.movie_title
        FROM users u
        JOIN all_movies am ON am.movie_id = u.favorite_movie
        WHERE u.user_id = $1
    `
	var title string
	if err := r.db.QueryRow(ctx, sql, userID).Scan(&title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("favorite movie title: %w", err)
	}
	return &title, nil
}

// SetMedia stores filename in the user column selected by media and returns
// the number of rows updated.
func (r *UsersRepository) SetMedia(ctx context.Context, userID int64, media domain.ProfileMedia, filename string) (int64, error) {
	var sql string
	switch media {
	case domain.MediaProfilePicture:
		sql = `UPDATE users SET profile_picture = $1 WHERE user_id = $2`
	case domain.MediaBackground:
		sql = `UPDATE users SET profile_background_photo = $1 WHERE user_id = $2`
	default:
		return 0, fmt.Errorf("unknown profile media %d", media)
	}
	tag, err := r.db.Exec(ctx, sql, filename, userID)
	if err != nil {
		return 0, fmt.Errorf("update profile media: %w", err)
	}
	return tag.RowsAffected(), nil
}
