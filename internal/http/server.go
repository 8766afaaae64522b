package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Clark-Hu/truereview/internal/auth"
	"github.com/Clark-Hu/truereview/internal/catalog"
	"github.com/Clark-Hu/truereview/internal/config"
	"github.com/Clark-Hu/truereview/internal/dashboard"
	"github.com/Clark-Hu/truereview/internal/metrics"
	"github.com/Clark-Hu/truereview/internal/profile"
	"github.com/Clark-Hu/truereview/internal/watchlist"
)

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the services the handlers call into.
type Deps struct {
	Health    HealthChecker
	Catalog   *catalog.Service
	Watchlist *watchlist.Service
	Dashboard *dashboard.Engine
	Profile   *profile.Service
	Login     *auth.LoginService
	Sessions  *auth.Sessions
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg       config.Config
	health    HealthChecker
	catalog   *catalog.Service
	watchlist *watchlist.Service
	dashboard *dashboard.Engine
	profile   *profile.Service
	login     *auth.LoginService
	sessions  *auth.Sessions
	logger    zerolog.Logger
	router    chi.Router
	httpSrv   *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps, logger zerolog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(logAccess))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	s := &Server{
		cfg:       cfg,
		health:    deps.Health,
		catalog:   deps.Catalog,
		watchlist: deps.Watchlist,
		dashboard: deps.Dashboard,
		profile:   deps.Profile,
		login:     deps.Login,
		sessions:  deps.Sessions,
		logger:    logger.With().Str("component", "http").Logger(),
		router:    r,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/", s.page("index.html"))
	s.router.Get("/login", s.page("login.html"))
	s.router.With(s.loginLimiter()).Post("/login", s.handleLogin)
	s.router.Post("/logout", s.handleLogout)

	s.router.Handle("/public/*", http.StripPrefix("/public/", staticFiles(s.cfg.WebDir, "public")))
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", staticFiles(s.cfg.UploadDir)))

	// Pages and form posts redirect anonymous visitors to the login page.
	s.router.Group(func(r chi.Router) {
		r.Use(s.sessions.Require(redirectToLogin))

		r.Get("/welcome", s.page("welcome.html"))
		r.Get("/dashboard", s.page("dashboard.html"))
		r.Get("/add-movie", s.page("add_movies.html"))
		r.Get("/watched", s.page("watched.html"))
		r.Get("/rate-movie/{id}", s.page("rate_movie.html"))
		r.Get("/update-movie/{id}", s.page("update_movie.html"))

		r.Post("/add-movie/{id}", s.handleAddMovie)
		r.Post("/update-movie/{id}", s.handleUpdateMovie)
		r.Post("/delete-movie/{id}", s.handleDeleteMovie)
	})

	s.router.Route("/api", func(r chi.Router) {
		if len(s.cfg.CORSAllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.cfg.CORSAllowedOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(s.sessions.Require(s.rejectAnonymous))

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/search-movies", s.handleSearchMovies)
		r.Get("/movie/{id}", s.handleGetMovie)
		r.Get("/watched", s.handleListWatched)
		r.Get("/watched/{id}", s.handleGetWatched)
		r.Post("/upload/profile-picture", s.handleUploadProfilePicture)
		r.Post("/upload/background", s.handleUploadBackground)
	})
}

func (s *Server) loginLimiter() func(http.Handler) http.Handler {
	limit := s.cfg.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			hlog.FromRequest(r).Warn().Msg("login rate limit exceeded")
			http.Redirect(w, r, "/login?error=rate", http.StatusSeeOther)
		}),
	)
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("health check failed")
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger := zerolog.Ctx(r.Context())
			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func logAccess(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
