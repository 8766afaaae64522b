// Command seed loads catalog movies, users and follow edges into the database.
//
//	seed catalog -url https://feed.example/v1 -api-key KEY
//	seed catalog -file movies.json -poster-base https://img.example/w500
//	seed user -username alice -email alice@example.com -password secret123
//	seed follow -follower 2 -following 1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/truereview/db/migrations"
	"github.com/Clark-Hu/truereview/internal/auth"
	"github.com/Clark-Hu/truereview/internal/catalogfeed"
	"github.com/Clark-Hu/truereview/internal/logging"
	"github.com/Clark-Hu/truereview/internal/repository"
	"github.com/Clark-Hu/truereview/internal/store"
	"github.com/Clark-Hu/truereview/internal/validation"
)

const usage = `usage: seed <catalog|user|follow> [flags]

Reads DB_URL from the environment (or .env).`

type userInput struct {
	Username string `form:"username" validate:"required,max=50"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
	Title    string `form:"title" validate:"max=100"`
	Bio      string `form:"bio" validate:"max=1000"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	_ = godotenv.Load()

	logger := logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "console",
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "catalog":
		err = runCatalog(ctx, args, logger)
	case "user":
		err = runUser(ctx, args, logger)
	case "follow":
		err = runFollow(ctx, args, logger)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}
}

func runCatalog(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	var (
		feedURL    = fs.String("url", os.Getenv("CATALOG_FEED_URL"), "feed base URL; GET <url>/movies")
		file       = fs.String("file", "", "read the feed from a local JSON file instead")
		apiKey     = fs.String("api-key", os.Getenv("CATALOG_FEED_API_KEY"), "value for the X-API-Key header")
		posterBase = fs.String("poster-base", os.Getenv("CATALOG_POSTER_BASE"), "prefix for relative poster paths")
		timeout    = fs.Duration("timeout", 30*time.Second, "HTTP timeout")
	)
	_ = fs.Parse(args)

	var src catalogfeed.Source
	switch {
	case *file != "":
		src = catalogfeed.FileSource{Path: *file, PosterBase: *posterBase}
	case *feedURL != "":
		client, err := catalogfeed.NewHTTPClient(*feedURL, catalogfeed.HTTPOptions{
			APIKey:     *apiKey,
			PosterBase: *posterBase,
			Timeout:    *timeout,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		src = client
	default:
		return errors.New("catalog: one of -url or -file is required")
	}

	batch, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	return withRepository(ctx, logger, func(repo *repository.Repository) error {
		written, err := repo.Catalog.Upsert(ctx, batch.Movies)
		if err != nil {
			return err
		}
		logger.Info().
			Int("movies", len(batch.Movies)).
			Int("skipped", batch.Skipped).
			Int64("written", written).
			Msg("catalog imported")
		return nil
	})
}

func runUser(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("user", flag.ExitOnError)
	var in userInput
	fs.StringVar(&in.Username, "username", "", "unique username")
	fs.StringVar(&in.Email, "email", "", "login email")
	fs.StringVar(&in.Password, "password", "", "plaintext password, stored as a bcrypt hash")
	fs.StringVar(&in.Title, "title", "", "optional profile title")
	fs.StringVar(&in.Bio, "bio", "", "optional profile bio")
	favorite := fs.Int64("favorite-movie", 0, "optional favorite movie id")
	_ = fs.Parse(args)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return err
	}

	hash, err := auth.BcryptHasher{}.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	params := repository.UserCreateParams{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Title:        optional(in.Title),
		Bio:          optional(in.Bio),
	}
	if *favorite > 0 {
		params.FavoriteMovie = favorite
	}

	return withRepository(ctx, logger, func(repo *repository.Repository) error {
		id, err := repo.Users.Create(ctx, params)
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("user %q or email %q already exists", in.Username, in.Email)
		}
		if err != nil {
			return err
		}
		logger.Info().Int64("user_id", id).Str("username", in.Username).Msg("user created")
		return nil
	})
}

func runFollow(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("follow", flag.ExitOnError)
	follower := fs.Int64("follower", 0, "id of the following user")
	following := fs.Int64("following", 0, "id of the followed user")
	_ = fs.Parse(args)

	if *follower <= 0 || *following <= 0 {
		return errors.New("follow: -follower and -following are required")
	}
	if *follower == *following {
		return errors.New("follow: a user cannot follow themselves")
	}

	return withRepository(ctx, logger, func(repo *repository.Repository) error {
		if err := repo.Follows.Follow(ctx, *follower, *following); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.New("follow: unknown user id")
			}
			return err
		}
		logger.Info().Int64("follower", *follower).Int64("following", *following).Msg("follow recorded")
		return nil
	})
}

// withRepository migrates the schema, opens a small pool and runs fn.
func withRepository(ctx context.Context, logger zerolog.Logger, fn func(*repository.Repository) error) error {
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return errors.New("DB_URL is required")
	}
	if err := migrations.Up(dbURL); err != nil {
		return err
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := store.New(connCtx, dbURL, store.Options{
		MaxConns:               2,
		ConnTimeout:            10 * time.Second,
		StatementCacheCapacity: 64,
		Logger:                 logger,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(repository.New(st))
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
