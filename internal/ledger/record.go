package ledger

import (
	"database/sql"
	"time"
)

// Record mirrors one row of the conversions table (spec.md §3, LedgerRecord).
type Record struct {
	SourcePath  string
	TargetPath  string
	State       State
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	SourceBytes *int64
	OutputBytes *int64
}

// Start upserts a record in state "processing" for source, wiping any prior
// attempt for the same source_path (spec.md §4.A: "insert_or_replace on
// start_conversion wipes the previous record — a restart is not an update
// of the prior attempt").
func (l *Ledger) Start(source, target string, sourceBytes *int64) error {
	startedAt := epochMillis(time.Now())
	_, err := l.db.Exec(`
		INSERT INTO conversions (source_path, target_path, state, started_at, completed_at, error, source_bytes, output_bytes)
		VALUES (?, ?, ?, ?, NULL, NULL, ?, NULL)
		ON CONFLICT(source_path) DO UPDATE SET
			target_path  = excluded.target_path,
			state        = excluded.state,
			started_at   = excluded.started_at,
			completed_at = NULL,
			error        = NULL,
			source_bytes = excluded.source_bytes,
			output_bytes = NULL
	`, source, target, string(StateProcessing), startedAt, sourceBytes)
	return err
}

// Complete marks source as complete, recording the output size.
func (l *Ledger) Complete(source string, outputBytes int64) error {
	_, err := l.db.Exec(`
		UPDATE conversions
		SET state = ?, completed_at = ?, error = NULL, output_bytes = ?
		WHERE source_path = ?
	`, string(StateComplete), epochMillis(time.Now()), outputBytes, source)
	return err
}

// Fail marks source as failed, recording the classified error text.
func (l *Ledger) Fail(source, errText string) error {
	_, err := l.db.Exec(`
		UPDATE conversions
		SET state = ?, completed_at = ?, error = ?
		WHERE source_path = ?
	`, string(StateFailed), epochMillis(time.Now()), errText, source)
	return err
}

// Get looks up the record for source. It returns (nil, nil) if absent.
func (l *Ledger) Get(source string) (*Record, error) {
	row := l.db.QueryRow(`
		SELECT source_path, target_path, state, started_at, completed_at, error, source_bytes, output_bytes
		FROM conversions WHERE source_path = ?
	`, source)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// QueryByState enumerates all records in the given state, used by the
// verify/cleanup command mode.
func (l *Ledger) QueryByState(state State) ([]*Record, error) {
	rows, err := l.db.Query(`
		SELECT source_path, target_path, state, started_at, completed_at, error, source_bytes, output_bytes
		FROM conversions WHERE state = ?
		ORDER BY started_at ASC
	`, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete drops the record for source, re-enabling reconversion. Used by
// cleanup.
func (l *Ledger) Delete(source string) error {
	_, err := l.db.Exec(`DELETE FROM conversions WHERE source_path = ?`, source)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*Record, error) {
	var rec Record
	var state string
	var startedAt int64
	var completedAt sql.NullInt64
	var errText sql.NullString
	var sourceBytes, outputBytes sql.NullInt64

	if err := s.Scan(&rec.SourcePath, &rec.TargetPath, &state, &startedAt,
		&completedAt, &errText, &sourceBytes, &outputBytes); err != nil {
		return nil, err
	}

	rec.State = State(state)
	rec.StartedAt = millisToTime(startedAt)
	if completedAt.Valid {
		t := millisToTime(completedAt.Int64)
		rec.CompletedAt = &t
	}
	if errText.Valid {
		rec.Error = errText.String
	}
	if sourceBytes.Valid {
		v := sourceBytes.Int64
		rec.SourceBytes = &v
	}
	if outputBytes.Valid {
		v := outputBytes.Int64
		rec.OutputBytes = &v
	}
	return &rec, nil
}

func epochMillis(t time.Time) int64 { return t.UnixMilli() }

func millisToTime(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
