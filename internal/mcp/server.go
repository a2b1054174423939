// Package mcp serves the approved ontology as tools over JSON-RPC 2.0 on
// stdio. Listings and calls are filtered per caller through the access
// filter against one ontology snapshot per request.
package mcp

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"ontolock/internal/ontology"
	"ontolock/internal/resolver"
	"ontolock/internal/slogutil"
)

// Options configures a Server.
type Options struct {
	Holder    *ontology.Holder
	Resolvers *resolver.Registry
	// Principal is used for every request unless the ontology has an auth
	// hook and the request carries a token in _meta.
	Principal ontology.Principal
	// Environment names the ontology environment passed to resolvers.
	Environment string
	PageSize    int
	Logger      *slog.Logger
	Stdin       io.Reader
	Stdout      io.Writer
}

// Server is the stdio tool server.
type Server struct {
	stdin       io.Reader
	stdout      io.Writer
	scanner     *bufio.Scanner
	writeMu     sync.Mutex
	logger      *slog.Logger
	holder      *ontology.Holder
	resolvers   *resolver.Registry
	principal   ontology.Principal
	environment string
	pageSize    int
	initialized atomic.Bool
}

// NewServer creates a server reading from stdin and writing to stdout
// unless Options says otherwise.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slogutil.NewDiscardLogger()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Resolvers == nil {
		opts.Resolvers = resolver.NewRegistry()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Server{
		stdin:       opts.Stdin,
		stdout:      opts.Stdout,
		logger:      opts.Logger,
		holder:      opts.Holder,
		resolvers:   opts.Resolvers,
		principal:   opts.Principal,
		environment: opts.Environment,
		pageSize:    opts.PageSize,
	}
}

// Serve processes messages until stdin reaches EOF or ctx is cancelled.
// Cancellation is noticed between messages.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Tool server starting", "environment", s.environment)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("Tool server shutting down", "reason", err.Error())
			return nil
		}

		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("Tool server shutting down (EOF)")
				return nil
			}
			var malformed *errMalformed
			if stderrors.As(err, &malformed) {
				s.logger.Warn("Dropping malformed message", "error", err.Error())
				_ = s.writeError(nil, ParseError, err.Error())
				continue
			}
			return err
		}

		if response := s.handleMessage(ctx, msg); response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response", "error", err.Error())
			}
		}
	}
}

// NotifyToolsChanged tells an initialized client to re-list tools.
func (s *Server) NotifyToolsChanged() {
	if !s.initialized.Load() {
		return
	}
	if err := s.writeMessage(NewNotificationMessage("notifications/tools/list_changed", nil)); err != nil {
		s.logger.Warn("Failed to send tools/list_changed", "error", err.Error())
	}
}
