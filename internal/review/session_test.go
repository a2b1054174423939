package review

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ontolock/internal/errors"
	"ontolock/internal/history"
	"ontolock/internal/lockfile"
	"ontolock/internal/ontology"
	"ontolock/internal/schema"
	"ontolock/internal/slogutil"
)

type fixture struct {
	lock    *lockfile.Engine
	history *history.Store
	def     *ontology.Definition
	session *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	def, err := ontology.Build(ontology.Source{
		AccessGroups: []ontology.AccessGroup{{Name: "admin"}, {Name: "public"}},
		Functions: []ontology.Function{{
			Name:   "getUser",
			Access: []string{"admin", "public"},
			Inputs: schema.Object(schema.Prop("id", schema.String())),
		}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	lock := lockfile.New(filepath.Join(t.TempDir(), "ontology.lock.json"), slogutil.NewDiscardLogger())
	hist, err := history.Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = hist.Close() })

	m, ok := lockfile.AsMismatch(lock.Verify(context.Background(), def))
	if !ok {
		t.Fatal("expected a mismatch against a missing lockfile")
	}
	return &fixture{
		lock:    lock,
		history: hist,
		def:     def,
		session: NewSession(m, lock, hist, slogutil.NewDiscardLogger()),
	}
}

func TestSession_Approve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if f.session.Diff().AddedCount == 0 {
		t.Error("diff should show the new function and groups")
	}

	rec, err := f.session.Approve(ctx, "alice")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	out, err := f.session.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if out.Decision != history.Approved || out.Record.Hash != rec.Hash || out.Reviewer != "alice" {
		t.Errorf("outcome = %+v", out)
	}
	if err := f.lock.Verify(ctx, f.def); err != nil {
		t.Errorf("Verify() after approval = %v", err)
	}
	if f.session.Status() != StatusApproved {
		t.Errorf("Status() = %s", f.session.Status())
	}

	last, err := f.history.LastApproved(ctx)
	if err != nil || last == nil {
		t.Fatalf("LastApproved() = %v, %v", last, err)
	}
	if last.Hash != rec.Hash || last.Reviewer != "alice" {
		t.Errorf("history entry = %+v", last)
	}
}

func TestSession_Reject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.session.Reject(ctx, "bob", "public access is too wide"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	out, err := f.session.Wait(ctx)
	if !errors.Is(err, errors.ReviewRejected) {
		t.Fatalf("Wait() error = %v, want REVIEW_REJECTED", err)
	}
	if out == nil || out.Reason != "public access is too wide" {
		t.Errorf("outcome = %+v", out)
	}
	if f.lock.Exists() {
		t.Error("rejection must not write the lockfile")
	}
	if errors.ExitCode(err) != 2 {
		t.Errorf("ExitCode = %d, want 2", errors.ExitCode(err))
	}

	entries, _ := f.history.List(ctx, 0)
	if len(entries) != 1 || entries[0].Decision != history.Rejected {
		t.Errorf("history = %+v", entries)
	}
}

func TestSession_OneShot(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		first func(*Session) error
	}{
		{"after approve", func(s *Session) error { _, err := s.Approve(ctx, "a"); return err }},
		{"after reject", func(s *Session) error { return s.Reject(ctx, "a", "") }},
		{"after abandon", func(s *Session) error { s.Abandon(); return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFixture(t).session
			if err := tt.first(s); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Approve(ctx, "b"); !errors.Is(err, errors.ReviewAlreadyDecided) {
				t.Errorf("second Approve() error = %v, want REVIEW_ALREADY_DECIDED", err)
			}
			if err := s.Reject(ctx, "b", "late"); !errors.Is(err, errors.ReviewAlreadyDecided) {
				t.Errorf("second Reject() error = %v, want REVIEW_ALREADY_DECIDED", err)
			}
			s.Abandon() // must not panic on an already-settled session
		})
	}
}

func TestSession_AbandonReleasesWait(t *testing.T) {
	s := newFixture(t).session

	errc := make(chan error, 1)
	go func() {
		_, err := s.Wait(context.Background())
		errc <- err
	}()

	s.Abandon()
	select {
	case err := <-errc:
		if !errors.Is(err, errors.ReviewAbandoned) {
			t.Errorf("Wait() error = %v, want REVIEW_ABANDONED", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait() did not return after Abandon()")
	}
}

func TestSession_WaitCancelled(t *testing.T) {
	s := newFixture(t).session
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if s.Status() != StatusPending {
		t.Error("a cancelled wait does not settle the session")
	}
}

func TestSession_ConcurrentDecisions(t *testing.T) {
	ctx := context.Background()
	s := newFixture(t).session

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := s.Approve(ctx, "a")
				results <- err
			} else {
				results <- s.Reject(ctx, "b", "")
			}
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, errors.ReviewAlreadyDecided) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d decisions succeeded, want exactly 1", succeeded)
	}
}
