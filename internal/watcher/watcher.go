// Package watcher watches the ontology source and lockfile and drives hot
// reload. It uses fsnotify where the platform supports it and falls back to
// polling file metadata.
package watcher

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ontolock/internal/slogutil"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch of events
type ChangeHandler func(events []Event)

// Watch modes
const (
	ModeNotify  = "fsnotify"
	ModePolling = "polling"
)

// Config contains watcher configuration
type Config struct {
	// Paths are the files to watch. Their directories are watched so that
	// editors which replace files by renaming are still seen.
	Paths        []string
	Debounce     time.Duration
	PollInterval time.Duration
	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Debounce:     250 * time.Millisecond,
		PollInterval: time.Second,
	}
}

// Watcher watches a fixed set of files
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	batch   *BatchDebouncer
	targets map[string]bool

	mu      sync.Mutex
	mode    string
	notify  *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates a watcher; nothing is watched until Start
func New(config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}

	w := &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		targets: make(map[string]bool, len(config.Paths)),
	}
	for _, p := range config.Paths {
		if abs, err := filepath.Abs(p); err == nil {
			w.targets[abs] = true
		}
	}
	w.batch = NewBatchDebouncer(config.Debounce, w.emit)
	return w
}

// Start begins watching until ctx is cancelled or Stop is called
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}
	if len(w.targets) == 0 {
		return stderrors.New("watcher: no paths to watch")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.started = true

	if !w.config.ForcePolling {
		err := w.startNotify(ctx)
		if err == nil {
			w.mode = ModeNotify
			w.logger.Info("Watching ontology files", "mode", w.mode, "paths", len(w.targets))
			return nil
		}
		w.logger.Warn("fsnotify unavailable, falling back to polling", "error", err.Error())
	}

	w.startPolling(ctx)
	w.mode = ModePolling
	w.logger.Info("Watching ontology files",
		"mode", w.mode,
		"paths", len(w.targets),
		"interval", w.config.PollInterval.String(),
	)
	return nil
}

// Stop stops watching and drops any pending batch
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.cancel()
	notify := w.notify
	w.notify = nil
	w.mu.Unlock()

	if notify != nil {
		_ = notify.Close()
	}
	w.wg.Wait()
	w.batch.Cancel()
	w.logger.Info("File watcher stopped")
}

// Mode reports how the watcher is running, or "" before Start
func (w *Watcher) Mode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

func (w *Watcher) emit(events []Event) {
	w.logger.Debug("Ontology files changed", "eventCount", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}

func (w *Watcher) startNotify(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dirs := make(map[string]bool)
	for p := range w.targets {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return err
		}
	}
	w.notify = fw

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if !w.targets[filepath.Clean(ev.Name)] {
					continue
				}
				typ, relevant := eventType(ev.Op)
				if !relevant {
					continue
				}
				w.batch.Add(Event{Type: typ, Path: ev.Name, Timestamp: time.Now()})
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("File watcher error", "error", err.Error())
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func eventType(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventModify, true
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	default:
		// Chmod alone does not change content.
		return 0, false
	}
}

type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

func (w *Watcher) startPolling(ctx context.Context) {
	last := make(map[string]fileState, len(w.targets))
	for p := range w.targets {
		last[p] = statFile(p)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for p, prev := range last {
					cur := statFile(p)
					if ev, changed := compareStates(p, prev, cur); changed {
						w.batch.Add(ev)
					}
					last[p] = cur
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func compareStates(path string, prev, cur fileState) (Event, bool) {
	ev := Event{Path: path, Timestamp: time.Now()}
	switch {
	case !prev.exists && cur.exists:
		ev.Type = EventCreate
	case prev.exists && !cur.exists:
		ev.Type = EventDelete
	case cur.exists && (!cur.modTime.Equal(prev.modTime) || cur.size != prev.size):
		ev.Type = EventModify
	default:
		return Event{}, false
	}
	return ev, true
}
