// Package api provides the esgate HTTP server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/marmos91/esgate/internal/logger"
	"github.com/marmos91/esgate/pkg/cache"
	"github.com/marmos91/esgate/pkg/config"
	"github.com/marmos91/esgate/pkg/directory"
	"github.com/marmos91/esgate/pkg/issuer"
)

// Server is the esgate HTTP server.
//
// Endpoints:
//   - GET /: authentication gate
//   - GET /health: liveness probe
//   - GET /health/ready: readiness probe
//   - GET /config: redacted runtime configuration
//   - GET /metrics: Prometheus metrics (opt-in)
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	cfg          config.ServerConfig
	shutdownOnce sync.Once
}

// NewServer creates the HTTP server in a stopped state. Call Start() to
// begin serving requests.
func NewServer(cfg *config.Config, iss *issuer.Issuer, store cache.Store, dir directory.Client) *Server {
	router := NewRouter(cfg, iss, store, dir)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		server: server,
		cfg:    cfg.Server,
	}
}

// Start starts the HTTP server and blocks until the context is
// cancelled or the listener fails. Cancellation triggers graceful
// shutdown bounded by the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", s.server.Addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Server shutdown signal received")
		// A fresh context: the cancelled one would abort shutdown
		// immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("Server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			logger.Error("Server shutdown error", "error", err)
		} else {
			logger.Info("Server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the address the server binds to.
func (s *Server) Addr() string {
	return s.server.Addr
}
