// Package dashboard composes the profile summary shown on a user's dashboard.
package dashboard

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/truereview/internal/apperror"
	"github.com/Clark-Hu/truereview/internal/domain"
	"github.com/Clark-Hu/truereview/internal/metrics"
	"github.com/Clark-Hu/truereview/internal/repository"
)

// Engine computes dashboards from a DashboardStore.
type Engine struct {
	store  repository.DashboardStore
	logger zerolog.Logger
}

func NewEngine(store repository.DashboardStore, logger zerolog.Logger) *Engine {
	return &Engine{store: store, logger: logger.With().Str("component", "dashboard").Logger()}
}

// Compute reads every part of the dashboard from one snapshot. Missing follow
// counts default to zero; the average is rounded to two decimals and absent
// when the user has no entries.
func (e *Engine) Compute(ctx context.Context, userID int64) (domain.Dashboard, error) {
	start := time.Now()
	defer func() { metrics.RecordDashboard(time.Since(start)) }()

	var out domain.Dashboard
	err := e.store.ReadSnapshot(ctx, func(q repository.DashboardQueries) error {
		user, err := q.Profile(ctx, userID)
		if err != nil {
			return err
		}
		follows, err := q.FollowCounts(ctx, userID)
		if err != nil {
			return err
		}
		stats, err := q.WatchStats(ctx, userID)
		if err != nil {
			return err
		}
		favorite, err := q.FavoriteTitle(ctx, userID)
		if err != nil {
			return err
		}
		last, err := q.LastWatched(ctx, userID)
		if err != nil {
			return err
		}

		out = domain.Dashboard{
			User:               user,
			Stats:              normalizeStats(stats),
			FavoriteMovieTitle: favorite,
			LastWatched:        last,
		}
		if follows != nil {
			out.Follows = *follows
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Dashboard{}, apperror.NotFound("User not found")
		}
		e.logger.Error().Err(err).Int64("user_id", userID).Msg("compute dashboard failed")
		return domain.Dashboard{}, apperror.Store("Failed to load dashboard", err)
	}
	return out, nil
}

func normalizeStats(stats domain.WatchStats) domain.WatchStats {
	if stats.Total == 0 {
		return domain.WatchStats{}
	}
	if stats.Average != nil {
		avg := math.Round(*stats.Average*100) / 100
		stats.Average = &avg
	}
	return stats
}
