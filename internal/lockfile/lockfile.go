// Package lockfile persists the approved capability surface and verifies the
// live ontology against it. Write is the only mutation and must be reached
// through an explicit approval.
package lockfile

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ontolock/internal/canonical"
	"ontolock/internal/errors"
	"ontolock/internal/ontology"
	"ontolock/internal/version"
)

// Record is the persisted lockfile content.
type Record struct {
	Version   int                 `json:"version"`
	Hash      string              `json:"hash"`
	Snapshot  *canonical.Ontology `json:"snapshot"`
	WrittenAt time.Time           `json:"writtenAt"`
}

// Reason explains why verification failed.
type Reason string

const (
	ReasonChanged Reason = "changed"
	ReasonMissing Reason = "missing"
	ReasonCorrupt Reason = "corrupt"
)

// Mismatch is returned by Verify. It carries both snapshots so a diff can be
// computed without reading anything again.
type Mismatch struct {
	Old     *canonical.Ontology
	New     *canonical.Ontology
	OldHash string
	NewHash string
	Reason  Reason
}

func (m *Mismatch) Error() string {
	switch m.Reason {
	case ReasonMissing:
		return "no lockfile has been approved yet"
	case ReasonCorrupt:
		return "lockfile does not match its own snapshot"
	default:
		return fmt.Sprintf("ontology hash %s does not match locked hash %s", short(m.NewHash), short(m.OldHash))
	}
}

// Unwrap exposes the error code so errors.CodeOf and errors.ExitCode see it.
func (m *Mismatch) Unwrap() error {
	code := errors.LockMismatch
	switch m.Reason {
	case ReasonMissing:
		code = errors.LockfileMissing
	case ReasonCorrupt:
		code = errors.LockfileCorrupt
	}
	return errors.NewError(code, m.Error(), nil)
}

// AsMismatch extracts a *Mismatch from err's chain.
func AsMismatch(err error) (*Mismatch, bool) {
	var m *Mismatch
	ok := stderrors.As(err, &m)
	return m, ok
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "(none)"
	}
	return h
}

// Engine reads, writes and verifies one lockfile.
type Engine struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	// mu admits a single writer; a second concurrent Write is rejected.
	mu sync.Mutex
}

// New creates an engine for the lockfile at path.
func New(path string, logger *slog.Logger) *Engine {
	return &Engine{path: path, logger: logger, now: time.Now}
}

// Path returns the lockfile location.
func (e *Engine) Path() string { return e.path }

// Exists reports whether a lockfile has been written.
func (e *Engine) Exists() bool {
	_, err := os.Stat(e.path)
	return err == nil
}

// Write canonicalizes def and overwrites the lockfile with it.
func (e *Engine) Write(ctx context.Context, def *ontology.Definition) (*Record, error) {
	return e.WriteSnapshot(ctx, canonical.Canonicalize(def))
}

// WriteSnapshot overwrites the lockfile with snap. The file is replaced
// atomically; a crash mid-write leaves the previous record intact.
func (e *Engine) WriteSnapshot(ctx context.Context, snap *canonical.Ontology) (*Record, error) {
	if !e.mu.TryLock() {
		return nil, errors.Errorf(errors.WriteInProgress, "another lockfile write is in progress")
	}
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
		return nil, errors.NewError(errors.InternalError, "failed to create lockfile directory", err)
	}
	lock, err := tryLockFile(e.path + ".lock")
	if err != nil {
		if stderrors.Is(err, errLocked) {
			return nil, errors.Errorf(errors.WriteInProgress, "lockfile is being written by another process")
		}
		return nil, errors.NewError(errors.InternalError, "failed to lock lockfile", err)
	}
	defer func() { _ = lock.release() }()

	hash, err := canonical.Hash(snap)
	if err != nil {
		return nil, errors.NewError(errors.InternalError, "failed to hash snapshot", err)
	}
	rec := &Record{
		Version:   version.LockfileFormat,
		Hash:      hash,
		Snapshot:  snap,
		WrittenAt: e.now().UTC().Truncate(time.Second),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, errors.NewError(errors.InternalError, "failed to encode lockfile", err)
	}
	if err := writeAtomic(e.path, append(data, '\n')); err != nil {
		return nil, errors.NewError(errors.InternalError, "failed to write lockfile", err)
	}

	if e.logger != nil {
		e.logger.Info("Lockfile written",
			"path", e.path,
			"hash", hash,
			"functions", len(snap.Functions),
		)
	}
	return rec, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Read loads the lockfile. It fails with LOCKFILE_MISSING when none exists
// and LOCKFILE_CORRUPT when it cannot be parsed or its hash does not match
// its snapshot.
func (e *Engine) Read(ctx context.Context) (*Record, error) {
	rec, valid, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, errors.Errorf(errors.LockfileCorrupt, "lockfile hash %s does not match its snapshot", short(rec.Hash))
	}
	return rec, nil
}

// load returns the record and whether its hash matches its snapshot.
func (e *Engine) load(ctx context.Context) (*Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(e.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, false, errors.NewError(errors.LockfileMissing, "lockfile not found at "+e.path, err)
		}
		return nil, false, errors.NewError(errors.InternalError, "failed to read lockfile", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, errors.NewError(errors.LockfileCorrupt, "lockfile is not valid JSON", err)
	}
	if rec.Version > version.LockfileFormat {
		return nil, false, errors.Errorf(errors.LockfileCorrupt,
			"lockfile format %d is newer than this build supports (%d)", rec.Version, version.LockfileFormat)
	}
	if rec.Snapshot == nil {
		return nil, false, errors.Errorf(errors.LockfileCorrupt, "lockfile has no snapshot")
	}
	normalize(rec.Snapshot)

	hash, err := canonical.Hash(rec.Snapshot)
	if err != nil {
		return nil, false, errors.NewError(errors.LockfileCorrupt, "failed to hash stored snapshot", err)
	}
	return &rec, hash == rec.Hash, nil
}

func normalize(o *canonical.Ontology) {
	if o.Functions == nil {
		o.Functions = map[string]canonical.Function{}
	}
	if o.AccessGroups == nil {
		o.AccessGroups = map[string]string{}
	}
	if o.Entities == nil {
		o.Entities = map[string]string{}
	}
}

// Verify compares def against the lockfile. It returns nil when they match
// and a *Mismatch otherwise. A missing lockfile is a mismatch against the
// empty ontology; an unreadable or tampered one is reported as corrupt with
// whatever snapshot could be recovered.
func (e *Engine) Verify(ctx context.Context, def *ontology.Definition) error {
	live := canonical.Canonicalize(def)
	liveHash, err := canonical.Hash(live)
	if err != nil {
		return errors.NewError(errors.InternalError, "failed to hash ontology", err)
	}

	rec, valid, err := e.load(ctx)
	switch {
	case errors.Is(err, errors.LockfileMissing):
		return &Mismatch{Old: canonical.Empty(), New: live, NewHash: liveHash, Reason: ReasonMissing}
	case errors.Is(err, errors.LockfileCorrupt):
		e.warn("Lockfile unreadable", err)
		return &Mismatch{Old: canonical.Empty(), New: live, NewHash: liveHash, Reason: ReasonCorrupt}
	case err != nil:
		return err
	case !valid:
		e.warn("Lockfile hash does not match its snapshot", nil)
		return &Mismatch{Old: rec.Snapshot, New: live, OldHash: rec.Hash, NewHash: liveHash, Reason: ReasonCorrupt}
	case rec.Hash != liveHash:
		return &Mismatch{Old: rec.Snapshot, New: live, OldHash: rec.Hash, NewHash: liveHash, Reason: ReasonChanged}
	}
	return nil
}

func (e *Engine) warn(msg string, err error) {
	if e.logger == nil {
		return
	}
	if err != nil {
		e.logger.Warn(msg, "path", e.path, "error", err.Error())
		return
	}
	e.logger.Warn(msg, "path", e.path)
}
