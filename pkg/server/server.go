// Package server provides the telemetry HTTP server used by "pivotal watch".
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/pivotal/pkg/config"
	"mercator-hq/pivotal/pkg/telemetry/health"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// MetricsSource exposes a Prometheus handler. *metrics.Collector
// satisfies it.
type MetricsSource interface {
	Handler() http.Handler
}

// BuildInfo is reported on /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Server serves metrics and health endpoints while watch mode runs.
type Server struct {
	config          *config.MetricsConfig
	metrics         MetricsSource
	checker         *health.Checker
	build           BuildInfo
	shutdownTimeout time.Duration
	logger          *slog.Logger

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a telemetry server. metrics or checker may be nil to
// leave their routes out.
func NewServer(cfg *config.MetricsConfig, metrics MetricsSource, checker *health.Checker, build BuildInfo) *Server {
	return &Server{
		config:          cfg,
		metrics:         metrics,
		checker:         checker,
		build:           build,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          slog.Default().With("component", "server"),
	}
}

// Start listens on the configured address and blocks until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting telemetry server",
			"address", ln.Addr().String(),
			"metrics_path", s.config.Path,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		srv := s.httpServer
		s.mu.Unlock()

		shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("telemetry server stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.metrics != nil {
		path := s.config.Path
		if path == "" {
			path = config.DefaultPrometheusPath
		}
		mux.Handle(path, s.metrics.Handler())
	}
	if s.checker != nil {
		health.HTTPMiddleware(mux, s.checker, s.build.Version, s.build.Commit, s.build.BuildTime)
	}

	var handler http.Handler = mux
	handler = LoggingMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	return handler
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
