// Package ledger is the durable per-directory status log described in
// spec.md §4.A: one row per source_path, recording the outcome of the most
// recent conversion attempt so skip/resume decisions survive a restart.
package ledger

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// FileName is the ledger's on-disk artifact name, created at the input root.
const FileName = ".ffmpeg-processor.db"

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id            INTEGER PRIMARY KEY,
	source_path   TEXT    UNIQUE NOT NULL,
	target_path   TEXT    NOT NULL,
	state         TEXT    NOT NULL,
	started_at    INTEGER NOT NULL,
	completed_at  INTEGER,
	error         TEXT,
	source_bytes  INTEGER,
	output_bytes  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_conversions_state ON conversions(state);
CREATE INDEX IF NOT EXISTS idx_conversions_source_path ON conversions(source_path);
`

// State is the persisted lifecycle state of a LedgerRecord.
type State string

const (
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Ledger wraps a single-file sqlite database holding the conversions table.
// It is safe for concurrent use from many goroutines; single-writer-per-key
// (source_path) is the pool's responsibility, not the ledger's.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if absent) the ledger file at path and applies the
// schema and the pragmas appropriate for a single-writer workload.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
