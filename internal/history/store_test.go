package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ontolock/internal/canonical"
	"ontolock/internal/diff"
	"ontolock/internal/slogutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSnapshot() *canonical.Ontology {
	o := canonical.Empty()
	o.AccessGroups["admin"] = "Administrators"
	o.Functions["getUser"] = canonical.Function{
		Name:     "getUser",
		Access:   []string{"admin"},
		Entities: []string{},
	}
	return o
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	e := &Entry{
		Decision:     Approved,
		Hash:         "abc123",
		PreviousHash: "000000",
		Reviewer:     "alice",
		Summary:      &diff.Summary{TotalChanges: 1, Warnings: 1, ByKind: map[string]int{"function": 1}},
	}
	if err := s.Record(ctx, e, sampleSnapshot()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if e.ID == "" || e.DecidedAt.IsZero() {
		t.Errorf("Record() should assign ID and time: %+v", e)
	}

	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil")
	}
	if got.Decision != Approved || got.Hash != "abc123" || got.PreviousHash != "000000" || got.Reviewer != "alice" {
		t.Errorf("Get() = %+v", got)
	}
	if got.Summary == nil || got.Summary.Warnings != 1 || got.Summary.ByKind["function"] != 1 {
		t.Errorf("Summary = %+v", got.Summary)
	}
	if got.Snapshot == nil {
		t.Fatal("snapshot not restored")
	}
	want, _ := canonical.Hash(sampleSnapshot())
	if h, _ := canonical.Hash(got.Snapshot); h != want {
		t.Errorf("snapshot hash = %s, want %s", h, want)
	}
	if !got.DecidedAt.Equal(e.DecidedAt) {
		t.Errorf("DecidedAt = %v, want %v", got.DecidedAt, e.DecidedAt)
	}
}

func TestGet_Unknown(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Get(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("Get(nope) = %v, %v; want nil, nil", got, err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, d := range []Decision{Approved, Rejected, Approved} {
		e := &Entry{Decision: d, Hash: string(rune('a' + i)), DecidedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.Record(ctx, e, nil); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(all))
	}
	if all[0].Hash != "c" || all[2].Hash != "a" {
		t.Errorf("order = %s %s %s, want c b a", all[0].Hash, all[1].Hash, all[2].Hash)
	}
	for _, e := range all {
		if e.Snapshot != nil {
			t.Error("List() must not load snapshots")
		}
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d entries", len(limited))
	}
}

func TestList_Empty(t *testing.T) {
	entries, err := openTestStore(t).List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", entries)
	}
}

func TestLastApproved(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if e, err := s.LastApproved(ctx); err != nil || e != nil {
		t.Fatalf("LastApproved() on empty store = %v, %v", e, err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = s.Record(ctx, &Entry{Decision: Approved, Hash: "first", DecidedAt: base}, sampleSnapshot())
	_ = s.Record(ctx, &Entry{Decision: Rejected, Hash: "second", Reason: "too wide", DecidedAt: base.Add(time.Minute)}, nil)

	e, err := s.LastApproved(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Hash != "first" || e.Snapshot == nil {
		t.Errorf("LastApproved() = %+v", e)
	}
}

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".ontolock", "history.db")

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Record(ctx, &Entry{Decision: Rejected, Hash: "h", Reason: "no"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Reason != "no" {
		t.Errorf("entries after reopen = %+v", entries)
	}
}
