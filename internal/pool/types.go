// Package pool implements the bounded-concurrency work pool of spec.md
// §4.D: the walker's consumer, the encoder driver's supervisor, and the
// component that runs both the steady-state scheduling loop and the
// two-level shutdown protocol.
package pool

import (
	"context"
	"time"

	"github.com/kennethjefferson/ffmpeg-processor/internal/encoder"
)

// State is a Job's lifecycle state (spec.md §3).
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Job is the pool's record of one conversion attempt. The pool exclusively
// owns it (spec.md §3 "Ownership"); callers only ever see snapshots via
// observer callbacks.
type Job struct {
	ID                 int64
	SourcePath         string
	TargetPath         string
	State              State
	Percent            int
	DurationSeconds    *float64
	CurrentTimeSeconds *float64
	StartTime          time.Time
	EndTime            time.Time
	ErrorText          string
	OutputBytes        *int64
}

// JobResult is what the encoder driver reported for one job, passed to
// OnJobComplete alongside the Job itself.
type JobResult struct {
	Success     bool
	ErrorText   string
	OutputBytes int64
}

// PipelineState is the counters-only snapshot spec.md §3 specifies: no
// unbounded arrays, no per-job history.
type PipelineState struct {
	TotalAdded       int
	Completed        int
	Failed           int
	Cancelled        int
	TotalOutputBytes int64
	ActiveJobIDs     []int64
}

// Summary is the final report computed exactly once per invocation
// (spec.md §4.D "Completion").
type Summary struct {
	TotalAdded       int
	Completed        int
	Failed           int
	Cancelled        int
	TotalTime        time.Duration
	TotalOutputBytes int64
}

// Observer receives the pipeline's event callbacks (spec.md §1's
// out-of-scope-but-fixed-interface list). Implementations must not call
// back into the pool, walker, or ledger.
type Observer interface {
	OnFileAdded(job *Job)
	OnJobStart(job *Job)
	OnJobProgress(job *Job, percent int, currentSeconds float64)
	OnJobComplete(job *Job, result JobResult)
	OnScanComplete()
	OnQueueComplete(summary Summary)
	OnStateChange(state PipelineState)
}

// NopObserver implements Observer with no-ops, useful as an embeddable
// default for callers that only care about a subset of callbacks.
type NopObserver struct{}

func (NopObserver) OnFileAdded(*Job)                          {}
func (NopObserver) OnJobStart(*Job)                           {}
func (NopObserver) OnJobProgress(*Job, int, float64)          {}
func (NopObserver) OnJobComplete(*Job, JobResult)             {}
func (NopObserver) OnScanComplete()                           {}
func (NopObserver) OnQueueComplete(Summary)                   {}
func (NopObserver) OnStateChange(PipelineState)               {}

// LedgerWriter is the slice of the ledger the pool writes to. *ledger.Ledger
// satisfies this structurally.
type LedgerWriter interface {
	Start(source, target string, sourceBytes *int64) error
	Complete(source string, outputBytes int64) error
	Fail(source, errText string) error
}

// Runner, Killer, and KillAller are injected so tests can substitute a fake
// encoder driver; in production they are encoder.Run, encoder.Kill, and
// encoder.KillAll.
type Runner func(ctx context.Context, job encoder.Job, onProgress encoder.ProgressFunc, settings encoder.Settings, verbose bool) (encoder.Result, error)

type Killer func(jobID int64) bool
type KillAller func(cleanupOutputs bool) []string
