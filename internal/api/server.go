// Package api serves the review surface: the HTTP endpoints a human (or a
// review page acting for one) uses to inspect a pending capability change
// and approve or reject it.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ontolock/internal/auth"
	"ontolock/internal/history"
	"ontolock/internal/lockfile"
	"ontolock/internal/review"
	"ontolock/internal/slogutil"
)

// Options wires the server's collaborators. Session and History may be nil.
type Options struct {
	Addr      string
	Session   *review.Session
	Lock      *lockfile.Engine
	History   *history.Store
	TokenHash string
	Logger    *slog.Logger
}

// Server represents the HTTP API server
type Server struct {
	router  chi.Router
	server  *http.Server
	addr    string
	logger  *slog.Logger
	session *review.Session
	lock    *lockfile.Engine
	history *history.Store
	started time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	s := &Server{
		router:  chi.NewRouter(),
		addr:    opts.Addr,
		logger:  logger,
		session: opts.Session,
		lock:    opts.Lock,
		history: opts.History,
		started: time.Now(),
	}

	s.router.Use(
		RequestIDMiddleware(),
		SameOriginMiddleware(),
		LoggingMiddleware(logger),
		RecoveryMiddleware(logger),
	)
	s.registerRoutes(ReviewerAuthMiddleware(opts.TokenHash, auth.NewRateLimiter(auth.RateLimitConfig{}, logger)))

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Review surface listening", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	s.logger.Debug("Review surface stopped")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}
