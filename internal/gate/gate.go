// Package gate runs the lockfile-gated startup protocol: nothing serves
// until the loaded capability surface matches the approved lockfile.
package gate

import (
	"context"
	"log/slog"
	"net"
	"time"

	"ontolock/internal/api"
	"ontolock/internal/config"
	"ontolock/internal/diff"
	"ontolock/internal/errors"
	"ontolock/internal/history"
	"ontolock/internal/lockfile"
	"ontolock/internal/ontology"
	"ontolock/internal/review"
	"ontolock/internal/slogutil"
)

// ReviewNotifier is told where a pending review can be reached.
type ReviewNotifier func(url string, d *diff.Diff)

// Options configures a Gate.
type Options struct {
	Lock      *lockfile.Engine
	History   *history.Store
	Mode      string
	Addr      string
	TokenHash string
	Logger    *slog.Logger
	// OnReview is called once the review surface is listening.
	OnReview ReviewNotifier
}

// Gate decides whether a definition may be served.
type Gate struct {
	lock      *lockfile.Engine
	history   *history.Store
	mode      string
	addr      string
	tokenHash string
	logger    *slog.Logger
	onReview  ReviewNotifier
}

// New creates a Gate. An empty mode means interactive.
func New(opts Options) *Gate {
	if opts.Logger == nil {
		opts.Logger = slogutil.NewDiscardLogger()
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeInteractive
	}
	return &Gate{
		lock:      opts.Lock,
		history:   opts.History,
		mode:      opts.Mode,
		addr:      opts.Addr,
		tokenHash: opts.TokenHash,
		logger:    opts.Logger,
		onReview:  opts.OnReview,
	}
}

// Run returns nil when def matches the lockfile. On a mismatch, headless
// mode returns the mismatch; interactive mode opens a review, waits for a
// decision without a timeout, and re-verifies after approval. Cancelling
// ctx abandons the review.
func (g *Gate) Run(ctx context.Context, def *ontology.Definition) error {
	err := g.lock.Verify(ctx, def)
	if err == nil {
		g.logger.Info("Capability surface matches lockfile", "lockfile", g.lock.Path())
		return nil
	}
	m, ok := lockfile.AsMismatch(err)
	if !ok {
		return err
	}

	d := diff.Compute(m.Old, m.New)
	g.logger.Warn("Capability surface differs from lockfile",
		"reason", string(m.Reason),
		"added", d.AddedCount,
		"removed", d.RemovedCount,
		"modified", d.ModifiedCount,
		"breaking", d.Summary.BreakingChanges,
	)

	if g.mode == config.ModeHeadless {
		return err
	}

	if err := g.review(ctx, m); err != nil {
		return err
	}
	return g.lock.Verify(ctx, def)
}

func (g *Gate) review(ctx context.Context, m *lockfile.Mismatch) error {
	session := review.NewSession(m, g.lock, g.history, g.logger)
	server := api.NewServer(api.Options{
		Addr:      g.addr,
		Session:   session,
		Lock:      g.lock,
		History:   g.history,
		TokenHash: g.tokenHash,
		Logger:    g.logger,
	})

	ln, err := net.Listen("tcp", g.addr)
	if err != nil {
		return errors.NewError(errors.InternalError, "failed to start review surface on "+g.addr, err)
	}

	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := server.Serve(ln); err != nil {
			g.logger.Error("Review surface failed", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("Review surface shutdown failed", "error", err.Error())
		}
		<-served
	}()

	decided := make(chan struct{})
	defer close(decided)
	go func() {
		select {
		case <-ctx.Done():
			session.Abandon()
		case <-served:
			// Nobody can reach the session once the surface is gone.
			session.Abandon()
		case <-decided:
		}
	}()

	url := "http://" + ln.Addr().String()
	g.logger.Info("Waiting for review", "url", url, "session", session.ID())
	if g.onReview != nil {
		g.onReview(url, session.Diff())
	}

	_, err = session.Wait(context.Background())
	return err
}
