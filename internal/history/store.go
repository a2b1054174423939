// Package history keeps an audit trail of review decisions. The lockfile is
// the only state the gate trusts; this log exists so a human can see who
// approved what and when.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"ontolock/internal/canonical"
	"ontolock/internal/diff"
	"ontolock/internal/slogutil"
)

// Decision is the outcome of one review.
type Decision string

const (
	Approved Decision = "approved"
	Rejected Decision = "rejected"
)

// timeLayout sorts lexically, which ORDER BY decided_at relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one recorded decision.
type Entry struct {
	ID           string        `json:"id"`
	Decision     Decision      `json:"decision"`
	Hash         string        `json:"hash"`
	PreviousHash string        `json:"previousHash,omitempty"`
	Reviewer     string        `json:"reviewer,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	Summary      *diff.Summary `json:"summary,omitempty"`
	DecidedAt    time.Time     `json:"decidedAt"`
	// Snapshot is only populated by Get.
	Snapshot *canonical.Ontology `json:"snapshot,omitempty"`
}

// Store persists entries in SQLite. Snapshots are stored zstd-compressed.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	now    func() time.Time
}

// Open opens or creates the history database at path. ":memory:" gives a
// private in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// One connection keeps ":memory:" coherent and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	s := &Store{db: db, logger: logger, enc: enc, dec: dec, now: time.Now}
	if err := s.initSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			decision TEXT NOT NULL,
			hash TEXT NOT NULL,
			previous_hash TEXT,
			reviewer TEXT,
			reason TEXT,
			summary TEXT,
			snapshot BLOB,
			decided_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_decided ON decisions(decided_at);
		CREATE INDEX IF NOT EXISTS idx_decisions_hash ON decisions(hash);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the database and codecs.
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.logger.Warn("Closing zstd encoder failed", "error", err.Error())
	}
	return s.db.Close()
}

// Record stores e. ID and DecidedAt are filled in when empty, and e is
// updated to carry them.
func (s *Store) Record(ctx context.Context, e *Entry, snapshot *canonical.Ontology) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.DecidedAt.IsZero() {
		e.DecidedAt = s.now()
	}
	e.DecidedAt = e.DecidedAt.UTC()

	var summaryJSON []byte
	if e.Summary != nil {
		var err error
		if summaryJSON, err = json.Marshal(e.Summary); err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
	}

	var blob []byte
	if snapshot != nil {
		raw, err := canonical.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		blob = s.enc.EncodeAll(raw, nil)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, decision, hash, previous_hash, reviewer, reason, summary, snapshot, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		string(e.Decision),
		e.Hash,
		nullable(e.PreviousHash),
		nullable(e.Reviewer),
		nullable(e.Reason),
		nullable(string(summaryJSON)),
		blob,
		e.DecidedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}

	s.logger.Debug("Review decision recorded",
		"id", e.ID,
		"decision", string(e.Decision),
		"hash", e.Hash,
	)
	return nil
}

// List returns the most recent entries first, without snapshots. A
// non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, decision, hash, previous_hash, reviewer, reason, summary, decided_at
		FROM decisions
		ORDER BY decided_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get returns one entry with its snapshot, or nil if id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, decision, hash, previous_hash, reviewer, reason, summary, decided_at, snapshot
		FROM decisions
		WHERE id = ?
	`, id)

	var blob []byte
	e, err := scanEntry(row, &blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		raw, err := s.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		var snap canonical.Ontology
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		e.Snapshot = &snap
	}
	return e, nil
}

// LastApproved returns the most recent approval, or nil if there is none.
func (s *Store) LastApproved(ctx context.Context) (*Entry, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM decisions
		WHERE decision = ?
		ORDER BY decided_at DESC, rowid DESC
		LIMIT 1
	`, string(Approved)).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last approval: %w", err)
	}
	return s.Get(ctx, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner, extra ...any) (*Entry, error) {
	var (
		e                                   Entry
		decision, decidedAt                 string
		prevHash, reviewer, reason, summary sql.NullString
	)
	dest := append([]any{&e.ID, &decision, &e.Hash, &prevHash, &reviewer, &reason, &summary, &decidedAt}, extra...)
	if err := sc.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan decision: %w", err)
	}

	e.Decision = Decision(decision)
	e.PreviousHash = prevHash.String
	e.Reviewer = reviewer.String
	e.Reason = reason.String
	if summary.Valid && summary.String != "" {
		e.Summary = &diff.Summary{}
		if err := json.Unmarshal([]byte(summary.String), e.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	}
	t, err := time.Parse(timeLayout, decidedAt)
	if err != nil {
		return nil, fmt.Errorf("parse decided_at: %w", err)
	}
	e.DecidedAt = t
	return &e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
