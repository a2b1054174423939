package watcher

import (
	"sync"
	"time"
)

// BatchDebouncer collects events and emits them as one batch once a quiet
// period has passed. Events for the same path collapse into the latest one,
// so an editor's write-rename-chmod burst yields a single event per file.
// Emissions never overlap.
type BatchDebouncer struct {
	delay  time.Duration
	emit   func([]Event)
	emitMu sync.Mutex

	mu     sync.Mutex
	timer  *time.Timer
	order  []string
	latest map[string]Event
	// gen invalidates timers that fired after a Cancel or a reset.
	gen uint64
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay:  delay,
		emit:   emit,
		latest: make(map[string]Event),
	}
}

// Add adds an event to the batch and restarts the quiet period
func (b *BatchDebouncer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, seen := b.latest[event.Path]; !seen {
		b.order = append(b.order, event.Path)
	}
	b.latest[event.Path] = event

	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	gen := b.gen
	b.timer = time.AfterFunc(b.delay, func() {
		b.fire(gen)
	})
}

func (b *BatchDebouncer) fire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	events := b.takeLocked()
	b.mu.Unlock()
	b.deliver(events)
}

func (b *BatchDebouncer) takeLocked() []Event {
	events := make([]Event, 0, len(b.order))
	for _, p := range b.order {
		events = append(events, b.latest[p])
	}
	b.order = nil
	b.latest = make(map[string]Event)
	b.timer = nil
	return events
}

func (b *BatchDebouncer) deliver(events []Event) {
	if len(events) == 0 || b.emit == nil {
		return
	}
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	b.emit(events)
}

// Cancel drops any pending events
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	b.takeLocked()
}

// Flush immediately emits any pending events
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	events := b.takeLocked()
	b.mu.Unlock()

	b.deliver(events)
}

// EventCount returns the number of pending events, one per path
func (b *BatchDebouncer) EventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
