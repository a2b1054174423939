package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ontolock/internal/errors"
	"ontolock/internal/lockfile"
	"ontolock/internal/ontology"
	"ontolock/internal/schema"
	"ontolock/internal/slogutil"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompareStates(t *testing.T) {
	now := time.Now()
	present := fileState{exists: true, modTime: now, size: 10}

	tests := []struct {
		name    string
		prev    fileState
		cur     fileState
		want    EventType
		changed bool
	}{
		{"created", fileState{}, present, EventCreate, true},
		{"deleted", present, fileState{}, EventDelete, true},
		{"touched", present, fileState{exists: true, modTime: now.Add(time.Second), size: 10}, EventModify, true},
		{"resized", present, fileState{exists: true, modTime: now, size: 11}, EventModify, true},
		{"unchanged", present, present, 0, false},
		{"still missing", fileState{}, fileState{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, changed := compareStates("f", tt.prev, tt.cur)
			if changed != tt.changed || (changed && ev.Type != tt.want) {
				t.Errorf("compareStates() = %v, %v; want %v, %v", ev.Type, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestBatchDebouncer_Coalesces(t *testing.T) {
	var mu sync.Mutex
	var batches [][]Event
	b := NewBatchDebouncer(30*time.Millisecond, func(events []Event) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})

	b.Add(Event{Type: EventCreate, Path: "a"})
	b.Add(Event{Type: EventModify, Path: "b"})
	b.Add(Event{Type: EventModify, Path: "a"})
	if b.EventCount() != 2 {
		t.Errorf("EventCount() = %d, want 2", b.EventCount())
	}

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("batches = %+v, want one batch of 2", batches)
	}
	if batches[0][0].Path != "a" || batches[0][0].Type != EventModify {
		t.Errorf("first event = %+v, want latest event for a", batches[0][0])
	}
}

func TestBatchDebouncer_CancelAndFlush(t *testing.T) {
	var mu sync.Mutex
	count := 0
	b := NewBatchDebouncer(20*time.Millisecond, func(events []Event) {
		mu.Lock()
		count += len(events)
		mu.Unlock()
	})

	b.Add(Event{Path: "a"})
	b.Cancel()
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	if count != 0 {
		t.Errorf("cancelled batch emitted %d events", count)
	}
	mu.Unlock()

	b.Add(Event{Path: "a"})
	b.Flush()
	mu.Lock()
	if count != 1 {
		t.Errorf("Flush() emitted %d events, want 1", count)
	}
	mu.Unlock()

	b.Flush()
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("events emitted twice: %d", count)
	}
}

func TestWatcher_StartWithoutPaths(t *testing.T) {
	w := New(Config{}, nil, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() should fail without paths")
	}
	w.Stop()
}

func watchAndWrite(t *testing.T, forcePolling bool) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ontology.yaml")
	if err := os.WriteFile(path, []byte("functions: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got := make(chan []Event, 4)
	w := New(Config{
		Paths:        []string{path},
		Debounce:     20 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		ForcePolling: forcePolling,
	}, slogutil.NewDiscardLogger(), func(events []Event) { got <- events })
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if forcePolling && w.Mode() != ModePolling {
		t.Errorf("Mode() = %q, want polling", w.Mode())
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := os.WriteFile(path, []byte("functions: []\naccessGroups: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case events := <-got:
		for _, ev := range events {
			if filepath.Base(ev.Path) != "ontology.yaml" {
				t.Errorf("unexpected event for %s", ev.Path)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change detected")
	}
}

func TestWatcher_Polling(t *testing.T) {
	watchAndWrite(t, true)
}

func TestWatcher_Notify(t *testing.T) {
	watchAndWrite(t, false)
}

func definition(t *testing.T, access ...string) *ontology.Definition {
	t.Helper()
	def, err := ontology.Build(ontology.Source{
		AccessGroups: []ontology.AccessGroup{{Name: "admin"}, {Name: "public"}},
		Functions: []ontology.Function{{
			Name:     "getUser",
			Access:   access,
			Inputs:   schema.Object(schema.Prop("id", schema.String())),
			Resolver: "v2",
		}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return def
}

func TestReloader(t *testing.T) {
	ctx := context.Background()
	lock := lockfile.New(filepath.Join(t.TempDir(), "ontology.lock.json"), slogutil.NewDiscardLogger())
	approved := definition(t, "admin")
	if _, err := lock.Write(ctx, approved); err != nil {
		t.Fatal(err)
	}
	holder := ontology.NewHolder(approved)

	var next *ontology.Definition
	var loadErr error
	swaps := 0
	r := NewReloader(holder, lock,
		func() (*ontology.Definition, error) { return next, loadErr },
		func(prev, cur *ontology.Definition) { swaps++ },
		nil,
	)

	t.Run("same surface is published", func(t *testing.T) {
		next = definition(t, "admin")
		if err := r.Reload(ctx); err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		if holder.Current() != next || swaps != 1 {
			t.Errorf("definition not swapped in (swaps=%d)", swaps)
		}
	})

	t.Run("widened surface is refused", func(t *testing.T) {
		live := holder.Current()
		next = definition(t, "admin", "public")
		err := r.Reload(ctx)
		if !errors.Is(err, errors.LockMismatch) {
			t.Fatalf("Reload() error = %v, want LOCK_MISMATCH", err)
		}
		if holder.Current() != live || swaps != 1 {
			t.Error("refused reload must keep the previous snapshot")
		}
	})

	t.Run("load failure is refused", func(t *testing.T) {
		live := holder.Current()
		loadErr = errors.Errorf(errors.InvalidDefinition, "broken yaml")
		defer func() { loadErr = nil }()
		if err := r.Reload(ctx); !errors.Is(err, errors.InvalidDefinition) {
			t.Fatalf("Reload() error = %v", err)
		}
		if holder.Current() != live {
			t.Error("failed load must keep the previous snapshot")
		}
	})

	t.Run("approved change goes live", func(t *testing.T) {
		widened := definition(t, "admin", "public")
		if _, err := lock.Write(ctx, widened); err != nil {
			t.Fatal(err)
		}
		next = widened
		r.Handler(ctx)([]Event{{Type: EventModify, Path: lock.Path()}})
		if holder.Current() != widened {
			t.Error("reload after approval should publish the new definition")
		}
	})
}
