// Package catalog serves movie lookups decorated with date-derived display
// fields.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/repository"
)

// SearchLimit caps the number of movies a single search returns.
const SearchLimit = 50

// DefaultDateLayout renders dates as month/day/year without padding.
const DefaultDateLayout = "1/2/2006"

// Options configures a Service. Zero values fall back to UTC, time.Now and
// DefaultDateLayout.
type Options struct {
	Location   *time.Location
	Now        func() time.Time
	DateLayout string
	Logger     zerolog.Logger
}

// Service answers catalog searches and single-movie lookups.
type Service struct {
	store  repository.CatalogStore
	loc    *time.Location
	now    func() time.Time
	layout string
	logger zerolog.Logger
}

// NewService builds a Service over store.
func NewService(store repository.CatalogStore, opts Options) *Service {
	s := &Service{
		store:  store,
		loc:    opts.Location,
		now:    opts.Now,
		layout: opts.DateLayout,
		logger: opts.Logger.With().Str("component", "catalog").Logger(),
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.layout == "" {
		s.layout = DefaultDateLayout
	}
	return s
}

// Search returns up to SearchLimit movies whose title contains query as given,
// surrounding whitespace included. An empty query returns an empty result
// without consulting the store.
func (s *Service) Search(ctx context.Context, query string) ([]domain.PresentedMovie, error) {
	if query == "" {
		return []domain.PresentedMovie{}, nil
	}

	movies, err := s.store.Search(ctx, query, SearchLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("catalog search failed")
		return nil, apperror.Store("Failed to search movies", err)
	}

	currentYear := s.now().In(s.loc).Year()
	out := make([]domain.PresentedMovie, 0, len(movies))
	for _, m := range movies {
		year := m.ReleaseDate.Year()
		out = append(out, domain.PresentedMovie{
			Movie:           m,
			ReleaseYear:     year,
			CurrentYear:     year == currentYear,
			FullReleaseDate: m.ReleaseDate.Format(s.layout),
		})
	}
	return out, nil
}

// Get looks up a single movie. Only ReleaseYear is derived.
func (s *Service) Get(ctx context.Context, id int64) (domain.PresentedMovie, error) {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PresentedMovie{}, apperror.NotFound("Movie not found")
		}
		s.logger.Error().Err(err).Int64("movie_id", id).Msg("movie lookup failed")
		return domain.PresentedMovie{}, apperror.Store("Failed to load movie", err)
	}
	return domain.PresentedMovie{Movie: m, ReleaseYear: m.ReleaseDate.Year()}, nil
}
