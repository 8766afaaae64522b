// Package metrics holds the Prometheus instruments exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "truereview_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truereview_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "truereview_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// WatchEntryMutations counts create/update/delete attempts by outcome.
	WatchEntryMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truereview_watch_entry_mutations_total",
			Help: "Total number of watch entry mutations",
		},
		[]string{"operation", "outcome"},
	)

	DashboardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "truereview_dashboard_compute_duration_seconds",
			Help:    "Time spent composing a dashboard snapshot",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truereview_login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truereview_profile_uploads_total",
			Help: "Total number of profile media uploads by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

// RecordWatchMutation increments the mutation counter. outcome is ok, not_found,
// invalid or error.
func RecordWatchMutation(operation, outcome string) {
	WatchEntryMutations.WithLabelValues(operation, outcome).Inc()
}

// RecordDashboard observes how long a dashboard took to compute.
func RecordDashboard(duration time.Duration) {
	DashboardDuration.Observe(duration.Seconds())
}

// RecordLogin increments the login counter for result (success, failure, error).
func RecordLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

// RecordUpload increments the upload counter.
func RecordUpload(kind, outcome string) {
	UploadsTotal.WithLabelValues(kind, outcome).Inc()
}

var registerPoolOnce sync.Once

// RegisterPoolStats exports connection pool gauges read from stats on every
// scrape. Only the first call registers.
func RegisterPoolStats(stats func() *pgxpool.Stat) {
	registerPoolOnce.Do(func() {
		gauge := func(name, help string, read func(*pgxpool.Stat) float64) {
			promauto.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
				s := stats()
				if s == nil {
					return 0
				}
				return read(s)
			})
		}
		gauge("truereview_db_pool_total_conns", "Total connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) })
		gauge("truereview_db_pool_acquired_conns", "Connections currently checked out",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) })
		gauge("truereview_db_pool_idle_conns", "Idle connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) })
	})
}

// Middleware records request count, latency and in-flight gauge. The route
// label is the chi route pattern so ids do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		status := strconv.Itoa(code)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}
