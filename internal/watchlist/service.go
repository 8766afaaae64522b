// Package watchlist implements the rating lifecycle of a user's watch entries.
package watchlist

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/metrics"
	"github.com/Clark-Hu/truereview/internal/repository"
	"github.com/Clark-Hu/truereview/internal/validation"
)

const (
	MinRating       = 1
	MaxRating       = 5
	MaxReviewLength = 5000
)

// Input is the user-supplied part of a create or update.
type Input struct {
	Rating int     `json:"user_rating" validate:"gte=1,lte=5"`
	Review *string `json:"review" validate:"omitempty,max=5000"`
}

// Detail is an entry with its derived release year.
type Detail struct {
	domain.WatchEntryDetail
	ReleaseYear int
}

// Service enforces rating policy and ownership over a WatchedStore.
type Service struct {
	store  repository.WatchedStore
	logger zerolog.Logger
}

func NewService(store repository.WatchedStore, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger.With().Str("component", "watchlist").Logger()}
}

// Create logs movieID for userID. Logging the same movie again creates a
// separate entry.
func (s *Service) Create(ctx context.Context, userID, movieID int64, in Input) (int64, error) {
	review, err := normalize(in)
	if err != nil {
		metrics.RecordWatchMutation("create", "invalid")
		return 0, err
	}

	id, err := s.store.Create(ctx, repository.WatchedCreateParams{
		UserID:  userID,
		MovieID: movieID,
		Rating:  in.Rating,
		Review:  review,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordWatchMutation("create", "not_found")
			return 0, apperror.NotFound("Movie not found")
		}
		metrics.RecordWatchMutation("create", "error")
		s.logger.Error().Err(err).Int64("user_id", userID).Int64("movie_id", movieID).Msg("create watch entry failed")
		return 0, apperror.Store("Failed to save rating", err)
	}

	metrics.RecordWatchMutation("create", "ok")
	s.logger.Debug().Int64("user_id", userID).Int64("watched_id", id).Msg("watch entry created")
	return id, nil
}

// Get returns an owned entry. Absent and foreign entries both yield NotFound.
func (s *Service) Get(ctx context.Context, watchedID, userID int64) (Detail, error) {
	d, err := s.store.Get(ctx, watchedID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Detail{}, apperror.NotFound("Entry not found")
		}
		s.logger.Error().Err(err).Int64("watched_id", watchedID).Msg("load watch entry failed")
		return Detail{}, apperror.Store("Failed to load entry", err)
	}
	return Detail{WatchEntryDetail: d, ReleaseYear: d.ReleaseDate.Year()}, nil
}

// List returns the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.WatchEntrySummary, error) {
	items, err := s.store.List(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("list watch entries failed")
		return nil, apperror.Store("Failed to load watched list", err)
	}
	return items, nil
}

// Update replaces rating and review of an owned entry.
func (s *Service) Update(ctx context.Context, watchedID, userID int64, in Input) error {
	review, err := normalize(in)
	if err != nil {
		metrics.RecordWatchMutation("update", "invalid")
		return err
	}

	affected, err := s.store.Update(ctx, repository.WatchedUpdateParams{
		WatchedID: watchedID,
		UserID:    userID,
		Rating:    in.Rating,
		Review:    review,
	})
	if err != nil {
		metrics.RecordWatchMutation("update", "error")
		s.logger.Error().Err(err).Int64("watched_id", watchedID).Msg("update watch entry failed")
		return apperror.Store("Failed to update entry", err)
	}
	if affected == 0 {
		metrics.RecordWatchMutation("update", "not_found")
		return apperror.NotFound("Entry not found")
	}
	metrics.RecordWatchMutation("update", "ok")
	return nil
}

// Delete removes an owned entry.
func (s *Service) Delete(ctx context.Context, watchedID, userID int64) error {
	affected, err := s.store.Delete(ctx, watchedID, userID)
	if err != nil {
		metrics.RecordWatchMutation("delete", "error")
		s.logger.Error().Err(err).Int64("watched_id", watchedID).Msg("delete watch entry failed")
		return apperror.Store("Failed to delete entry", err)
	}
	if affected == 0 {
		metrics.RecordWatchMutation("delete", "not_found")
		return apperror.NotFound("Entry not found")
	}
	metrics.RecordWatchMutation("delete", "ok")
	return nil
}

// normalize validates in and returns the review to store: nil when absent or
// blank, otherwise the trimmed text.
func normalize(in Input) (*string, error) {
	var review *string
	if in.Review != nil {
		if trimmed := strings.TrimSpace(*in.Review); trimmed != "" {
			review = &trimmed
		}
	}
	if err := validation.Struct(Input{Rating: in.Rating, Review: review}); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}
	return review, nil
}
