// Package verify implements the cleanup/verify command mode spec.md §1
// names as an out-of-scope collaborator: a read-mostly utility over the
// ledger, specified only by the ledger invariants it depends on.
package verify

import (
	"fmt"
	"os"

	"github.com/kennethjefferson/ffmpeg-processor/internal/ledger"
)

// Report is the --verify output: every record left in a non-terminal or
// failed state, which a `processing` row at process exit marks as
// interrupted (spec.md §3, LedgerRecord invariant).
type Report struct {
	Processing []*ledger.Record
	Failed     []*ledger.Record
}

// Inspect enumerates every processing and failed record.
func Inspect(l *ledger.Ledger) (Report, error) {
	processing, err := l.QueryByState(ledger.StateProcessing)
	if err != nil {
		return Report{}, fmt.Errorf("query processing: %w", err)
	}
	failed, err := l.QueryByState(ledger.StateFailed)
	if err != nil {
		return Report{}, fmt.Errorf("query failed: %w", err)
	}
	return Report{Processing: processing, Failed: failed}, nil
}

// CleanupResult is what a --cleanup (or --cleanup --dry-run) run did, or
// would have done.
type CleanupResult struct {
	DryRun        bool
	TargetsGone   []string // deleted, or "would delete" under dry-run
	RecordsDrop   []string // source paths whose ledger row was dropped
}

// Cleanup deletes the target file and drops the ledger record for every
// processing/failed row. Under dryRun it only reports what it would do
// (spec.md §6: "--cleanup ... combine with --dry-run to preview").
// Implements the cleanup round-trip law (spec.md §8): after a real
// cleanup, a subsequent run finds no ledger record and no target file, so
// the source is re-converted from scratch.
func Cleanup(l *ledger.Ledger, dryRun bool) (CleanupResult, error) {
	report, err := Inspect(l)
	if err != nil {
		return CleanupResult{}, err
	}

	result := CleanupResult{DryRun: dryRun}
	records := append(append([]*ledger.Record{}, report.Processing...), report.Failed...)

	for _, rec := range records {
		if dryRun {
			if _, statErr := os.Stat(rec.TargetPath); statErr == nil {
				result.TargetsGone = append(result.TargetsGone, rec.TargetPath)
			}
			result.RecordsDrop = append(result.RecordsDrop, rec.SourcePath)
			continue
		}

		if err := os.Remove(rec.TargetPath); err == nil {
			result.TargetsGone = append(result.TargetsGone, rec.TargetPath)
		}
		if err := l.Delete(rec.SourcePath); err != nil {
			return result, fmt.Errorf("delete ledger record for %s: %w", rec.SourcePath, err)
		}
		result.RecordsDrop = append(result.RecordsDrop, rec.SourcePath)
	}

	return result, nil
}
