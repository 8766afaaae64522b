package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/truereview/db/migrations"
	"github.com/Clark-Hu/truereview/internal/auth"
	"github.com/Clark-Hu/truereview/internal/catalog"
	"github.com/Clark-Hu/truereview/internal/config"
	"github.com/Clark-Hu/truereview/internal/dashboard"
	httpserver "github.com/Clark-Hu/truereview/internal/http"
	"github.com/Clark-Hu/truereview/internal/logging"
	"github.com/Clark-Hu/truereview/internal/metrics"
	"github.com/Clark-Hu/truereview/internal/profile"
	"github.com/Clark-Hu/truereview/internal/repository"
	"github.com/Clark-Hu/truereview/internal/store"
	"github.com/Clark-Hu/truereview/internal/watchlist"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(logging.Config{Output: os.Stderr})
		boot.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.MigrateOnStart {
		if err := migrations.Up(cfg.DBURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("schema up to date")
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()
	metrics.RegisterPoolStats(st.Stats)

	repo := repository.New(st)
	server := httpserver.New(cfg, buildDeps(cfg, st, repo, logger), logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

func buildDeps(cfg config.Config, st *store.Store, repo *repository.Repository, logger zerolog.Logger) httpserver.Deps {
	return httpserver.Deps{
		Health: st,
		Catalog: catalog.NewService(repo.Catalog, catalog.Options{
			Location:   cfg.Location(),
			DateLayout: cfg.DateLayout,
			Logger:     logger,
		}),
		Watchlist: watchlist.NewService(repo.Watched, logger),
		Dashboard: dashboard.NewEngine(repo.Dashboard, logger),
		Profile: profile.NewService(repo.Users, profile.Options{
			Dir:      cfg.UploadDir,
			MaxBytes: cfg.UploadMaxBytes,
			Logger:   logger,
		}),
		Login: auth.NewLoginService(repo.Users, auth.BcryptHasher{}, logger),
		Sessions: auth.NewSessions(auth.SessionOptions{
			Secret: []byte(cfg.SessionSecret),
			TTL:    cfg.SessionTTL(),
			Secure: cfg.CookieSecure,
		}),
	}
}
