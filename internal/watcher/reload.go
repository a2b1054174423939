package watcher

import (
	"context"
	"log/slog"
	"sync"

	"ontolock/internal/diff"
	"ontolock/internal/lockfile"
	"ontolock/internal/ontology"
	"ontolock/internal/slogutil"
)

// LoadFunc builds a fresh definition from source.
type LoadFunc func() (*ontology.Definition, error)

// SwapFunc is told about every published definition.
type SwapFunc func(prev, next *ontology.Definition)

// Reloader re-reads the ontology and publishes it only if it still matches
// the lockfile. A reload that fails to build or that changes the capability
// surface is refused and the previous snapshot stays live.
type Reloader struct {
	holder *ontology.Holder
	lock   *lockfile.Engine
	load   LoadFunc
	logger *slog.Logger
	onSwap SwapFunc

	// mu serializes reloads so two batches cannot race to Swap.
	mu sync.Mutex
}

// NewReloader creates a Reloader. onSwap may be nil.
func NewReloader(holder *ontology.Holder, lock *lockfile.Engine, load LoadFunc, onSwap SwapFunc, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Reloader{
		holder: holder,
		lock:   lock,
		load:   load,
		logger: logger,
		onSwap: onSwap,
	}
}

// Reload loads, verifies and swaps. It returns the reason a reload was
// refused, or nil once the new definition is live.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, err := r.load()
	if err != nil {
		r.logger.Error("Ontology reload failed, keeping current definition", "error", err.Error())
		return err
	}

	if err := r.lock.Verify(ctx, def); err != nil {
		if m, ok := lockfile.AsMismatch(err); ok {
			d := diff.Compute(m.Old, m.New)
			r.logger.Warn("Reloaded ontology differs from lockfile, keeping current definition",
				"reason", string(m.Reason),
				"added", d.AddedCount,
				"removed", d.RemovedCount,
				"modified", d.ModifiedCount,
			)
		} else {
			r.logger.Error("Ontology reload could not be verified", "error", err.Error())
		}
		return err
	}

	prev := r.holder.Swap(def)
	r.logger.Info("Ontology reloaded", "version", r.holder.Version(), "functions", len(def.Functions()))
	if r.onSwap != nil {
		r.onSwap(prev, def)
	}
	return nil
}

// Handler adapts Reload to a watcher ChangeHandler.
func (r *Reloader) Handler(ctx context.Context) ChangeHandler {
	return func(events []Event) {
		if ctx.Err() != nil {
			return
		}
		r.logger.Debug("Reloading after file changes", "events", len(events))
		_ = r.Reload(ctx)
	}
}
