package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/esgate/internal/logger"
	"github.com/marmos91/esgate/pkg/api/handlers"
	"github.com/marmos91/esgate/pkg/cache"
	"github.com/marmos91/esgate/pkg/config"
	"github.com/marmos91/esgate/pkg/directory"
	"github.com/marmos91/esgate/pkg/issuer"
	"github.com/marmos91/esgate/pkg/metrics"
)

// NewRouter creates and configures the chi router with all middleware
// and routes.
//
// Routes:
//   - GET / - authentication gate (trusted header identity in, Basic auth out)
//   - GET /health - minimal status probe
//   - GET /health/live - liveness probe
//   - GET /health/ready - readiness probe (cache + directory)
//   - GET /config - redacted runtime configuration
//   - GET /metrics - Prometheus metrics (only when enabled)
func NewRouter(cfg *config.Config, iss *issuer.Issuer, store cache.Store, dir directory.Client) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(requestMetrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	gateHandler := handlers.NewGateHandler(iss, cfg.Auth)
	healthHandler := handlers.NewHealthHandler(store, dir, cfg.Elasticsearch.DryRun)
	configHandler := handlers.NewConfigHandler(cfg)

	r.Get("/", gateHandler.Handle)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Health)
		r.Get("/live", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Get("/config", configHandler.Show)

	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			metrics.GetRegistry(),
			promhttp.HandlerOpts{},
		))
	}

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// clientIP strips the port from a RemoteAddr.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// requestLogger logs requests using the internal logger.
//
// Request start is logged at DEBUG, completion at INFO. Healthcheck
// requests complete at DEBUG to keep probe noise out of the logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		// RealIP has already rewritten RemoteAddr from forwarding headers.
		lc := &logger.LogContext{RequestID: requestID, ClientIP: clientIP(r.RemoteAddr)}
		r = r.WithContext(logger.WithContext(r.Context(), lc))

		logger.Debug("Request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		if isHealthPath(r.URL.Path) {
			logger.Debug("Request completed", logArgs...)
		} else {
			logger.Info("Request completed", logArgs...)
		}
	})
}

// requestMetrics records per-request counters and latency. A no-op when
// metrics are disabled.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !metrics.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		metrics.ObserveRequest(r.URL.Path, ww.Status(), time.Since(start))
	})
}
