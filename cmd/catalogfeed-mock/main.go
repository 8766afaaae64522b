// Command catalogfeed-mock serves a catalog feed file over HTTP so the seed
// command can be exercised without the real upstream.
package main

import (
	"bytes"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"

	"github.com/Clark-Hu/truereview/internal/catalogfeed"
	"github.com/Clark-Hu/truereview/internal/logging"
)

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "mock-catalog.json", "path to feed file")
		apiKey  = flag.String("api-key", "", "require this X-API-Key header when set")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "info"
	}
	logger := logging.New(logging.Config{Level: level, Format: "console"})

	file, err := os.ReadFile(*data)
	if err != nil {
		logger.Fatal().Err(err).Msg("read feed file")
	}
	batch, err := catalogfeed.Decode(bytes.NewReader(file), "")
	if err != nil {
		logger.Fatal().Err(err).Msg("parse feed file")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, _ time.Duration) {
		hlog.FromRequest(r).Info().Str("path", r.URL.Path).Int("status", status).Int("size", size).Msg("request")
	}))
	r.Get("/movies", func(w http.ResponseWriter, r *http.Request) {
		if *apiKey != "" && r.Header.Get("X-API-Key") != *apiKey {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(file)
	})

	addr := ":" + *port
	logger.Warn().Str("addr", addr).Int("movies", len(batch.Movies)).Int("skipped", batch.Skipped).Msg("mock catalog feed listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
