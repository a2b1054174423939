// Package review holds one pending change-control decision. A session is
// created for a lock mismatch, shown to a human, and settled exactly once by
// approval, rejection or abandonment.
package review

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ontolock/internal/diff"
	"ontolock/internal/errors"
	"ontolock/internal/history"
	"ontolock/internal/lockfile"
	"ontolock/internal/slogutil"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusAbandoned Status = "abandoned"
)

// Outcome is what Wait returns once a human has decided.
type Outcome struct {
	Decision  history.Decision `json:"decision"`
	Reviewer  string           `json:"reviewer,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Record    *lockfile.Record `json:"record,omitempty"`
	DecidedAt time.Time        `json:"decidedAt"`
}

// Session is a single review. Its decision channel holds at most one value
// and is closed without a value on abandonment.
type Session struct {
	id       string
	mismatch *lockfile.Mismatch
	diff     *diff.Diff
	lock     *lockfile.Engine
	history  *history.Store
	logger   *slog.Logger
	created  time.Time

	mu       sync.Mutex
	status   Status
	decision chan Outcome
}

// NewSession opens a review for m. hist may be nil to skip the audit trail.
func NewSession(m *lockfile.Mismatch, lock *lockfile.Engine, hist *history.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Session{
		id:       uuid.New().String(),
		mismatch: m,
		diff:     diff.Compute(m.Old, m.New),
		lock:     lock,
		history:  hist,
		logger:   logger,
		created:  time.Now().UTC(),
		status:   StatusPending,
		decision: make(chan Outcome, 1),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Diff returns the change set under review.
func (s *Session) Diff() *diff.Diff { return s.diff }

// Mismatch returns the verification failure that opened the session.
func (s *Session) Mismatch() *lockfile.Mismatch { return s.mismatch }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.created }

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Approve writes the reviewed snapshot to the lockfile and settles the
// session. The snapshot written is the one in the diff, not whatever the
// source looks like now, so a reviewer never approves something unseen. A
// failed write leaves the session pending.
func (s *Session) Approve(ctx context.Context, reviewer string) (*lockfile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return nil, s.alreadyDecided()
	}

	rec, err := s.lock.WriteSnapshot(ctx, s.mismatch.New)
	if err != nil {
		return nil, err
	}

	out := Outcome{Decision: history.Approved, Reviewer: reviewer, Record: rec, DecidedAt: time.Now().UTC()}
	s.record(ctx, out)
	s.status = StatusApproved
	s.decision <- out

	s.logger.Info("Capability change approved",
		"session", s.id,
		"reviewer", reviewer,
		"hash", rec.Hash,
	)
	return rec, nil
}

// Reject settles the session without touching the lockfile.
func (s *Session) Reject(ctx context.Context, reviewer, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return s.alreadyDecided()
	}

	out := Outcome{Decision: history.Rejected, Reviewer: reviewer, Reason: reason, DecidedAt: time.Now().UTC()}
	s.record(ctx, out)
	s.status = StatusRejected
	s.decision <- out

	s.logger.Info("Capability change rejected",
		"session", s.id,
		"reviewer", reviewer,
		"reason", reason,
	)
	return nil
}

// Abandon releases any waiter with REVIEW_ABANDONED. It is a no-op once the
// session is settled.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return
	}
	s.status = StatusAbandoned
	close(s.decision)
	s.logger.Warn("Review abandoned", "session", s.id)
}

// Wait blocks until the session is settled or ctx is done. Approval returns
// the outcome; rejection and abandonment return REVIEW_REJECTED and
// REVIEW_ABANDONED. Only one caller receives the decision.
func (s *Session) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out, ok := <-s.decision:
		if !ok {
			return nil, errors.Errorf(errors.ReviewAbandoned, "review %s was abandoned before a decision", s.id)
		}
		if out.Decision == history.Rejected {
			msg := "capability change rejected"
			if out.Reason != "" {
				msg += ": " + out.Reason
			}
			return &out, errors.NewError(errors.ReviewRejected, msg, nil).WithDetails(out)
		}
		return &out, nil
	}
}

func (s *Session) alreadyDecided() error {
	return errors.Errorf(errors.ReviewAlreadyDecided, "review %s is already %s", s.id, s.status)
}

// record appends to the audit trail. The lockfile is authoritative, so a
// history failure is logged and does not undo the decision.
func (s *Session) record(ctx context.Context, out Outcome) {
	if s.history == nil {
		return
	}
	e := &history.Entry{
		Decision:     out.Decision,
		Hash:         s.mismatch.NewHash,
		PreviousHash: s.mismatch.OldHash,
		Reviewer:     out.Reviewer,
		Reason:       out.Reason,
		Summary:      s.diff.Summary,
		DecidedAt:    out.DecidedAt,
	}
	if err := s.history.Record(ctx, e, s.mismatch.New); err != nil {
		s.logger.Warn("Failed to record review decision",
			"session", s.id,
			"error", err.Error(),
		)
	}
}
