package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/truereview/internal/domain"
)

// CatalogRepository reads the movie catalog. Upsert is only used by the
// seeding command.
type CatalogRepository struct {
	db querier
}

const movieColumns = `movie_id, movie_title, poster_full_url, movie_release_date`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns movies whose title contains query, case-insensitively,
// ordered by title in byte order. Wildcard characters in query match literally.
func (r *CatalogRepository) Search(ctx context.Context, query string, limit int) ([]domain.Movie, error) {
	sql := fmt.Sprintf(`
        SELECT %s
        FROM all_movies
        WHERE movie_title ILIKE $1 ESCAPE '\'
        ORDER BY movie_title COLLATE "C", movie_id
        LIMIT $2
    `, movieColumns)

	rows, err := r.db.Query(ctx, sql, "%"+likeEscaper.Replace(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	defer rows.Close()

	movies := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movies, nil
}

// GetByID fetches a movie by its identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	sql := fmt.Sprintf(`SELECT %s FROM all_movies WHERE movie_id = $1`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Upsert inserts or refreshes catalog rows keyed by movie id and returns the
// number of rows written.
func (r *CatalogRepository) Upsert(ctx context.Context, movies []domain.Movie) (int64, error) {
	if len(movies) == 0 {
		return 0, nil
	}
	const sql = `
        INSERT INTO all_movies (movie_id, movie_title, poster_full_url, movie_release_date)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (movie_id)
        DO UPDATE SET movie_title = EXCLUDED.movie_title,
                      poster_full_url = EXCLUDED.poster_full_url,
                      movie_release_date = EXCLUDED.movie_release_date
    `

	batch := &pgx.Batch{}
	for _, m := range movies {
		batch.Queue(sql, m.ID, m.Title, m.PosterURL, m.ReleaseDate)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	var written int64
	for i := range movies {
		tag, err := results.Exec()
		if err != nil {
			return written, fmt.Errorf("upsert movie %d: %w", movies[i].ID, err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	if err := row.Scan(&movie.ID, &movie.Title, &movie.PosterURL, &movie.ReleaseDate); err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}
