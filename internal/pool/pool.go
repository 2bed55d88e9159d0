package pool

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kennethjefferson/ffmpeg-processor/internal/encoder"
)

// Future resolves once the pool has fully drained, exactly once per Start
// (spec.md §4.D "Completion").
type Future struct {
	ch chan Summary
}

// Wait blocks until the pool's queue is complete and returns the summary.
func (f *Future) Wait() Summary {
	return <-f.ch
}

// Deps are the pool's collaborators. Settings and Verbose configure every
// encode; Run/Kill/KillAll default to the real encoder driver but are
// swappable for tests.
type Deps struct {
	Ledger   LedgerWriter
	Settings encoder.Settings
	Verbose  bool
	Observer Observer
	Run      Runner
	Kill     Killer
	KillAll  KillAller
}

// Pool is the bounded-concurrency work pool of spec.md §4.D: it owns every
// Job from enqueue to terminal state, runs at most concurrency jobs at
// once, and drives the two-level shutdown protocol.
type Pool struct {
	concurrency int
	deps        Deps

	mu           sync.Mutex
	started      bool
	paused       bool
	scanComplete bool
	shuttingDown bool
	immediate    bool
	completed    bool

	pending  []*Job
	active   map[int64]*Job
	counters Summary

	nextID    int64
	startedAt time.Time
	future    *Future
}

// New constructs a pool bound to concurrency workers (caller clamps to
// spec.md §3's [1,25]).
func New(concurrency int, deps Deps) *Pool {
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Run == nil {
		deps.Run = encoder.Run
	}
	if deps.Kill == nil {
		deps.Kill = encoder.Kill
	}
	if deps.KillAll == nil {
		deps.KillAll = encoder.KillAll
	}
	return &Pool{
		concurrency: concurrency,
		deps:        deps,
		active:      make(map[int64]*Job),
		future:      &Future{ch: make(chan Summary, 1)},
	}
}

// Add enqueues a newly discovered file as a pending job (spec.md §4.D
// "add"). Dispatch is triggered immediately if the pool is already
// running. A job added after a shutdown request is recorded as cancelled
// instead of being queued.
func (p *Pool) Add(sourcePath, targetPath string) *Job {
	id := atomic.AddInt64(&p.nextID, 1)
	job := &Job{ID: id, SourcePath: sourcePath, TargetPath: targetPath, State: StatePending}

	p.mu.Lock()
	if p.shuttingDown {
		job.State = StateCancelled
		job.EndTime = time.Now()
		p.counters.Cancelled++
	} else {
		p.pending = append(p.pending, job)
	}
	p.counters.TotalAdded++
	p.mu.Unlock()

	p.deps.Observer.OnFileAdded(job)
	p.schedule()
	return job
}

// Start transitions the pool from fresh to running and returns a Future
// that resolves when the queue completes.
func (p *Pool) Start() *Future {
	p.mu.Lock()
	p.started = true
	p.startedAt = time.Now()
	p.mu.Unlock()

	p.schedule()
	return p.future
}

// MarkScanComplete tells the pool the producer (the walker) is done. Once
// every pending and active job has drained, the pool completes on its own.
func (p *Pool) MarkScanComplete() {
	p.mu.Lock()
	p.scanComplete = true
	p.mu.Unlock()

	p.deps.Observer.OnScanComplete()
	p.schedule()
}

// RequestGracefulShutdown drops the pending queue (those jobs never ran,
// and count as cancelled) but lets every active job finish naturally.
func (p *Pool) RequestGracefulShutdown() {
	p.mu.Lock()
	p.shuttingDown = true
	p.dropPendingLocked()
	p.mu.Unlock()
	p.schedule()
}

// RequestImmediateShutdown drops the pending queue and kills every active
// child. Ledger records for killed jobs stay in the processing state so a
// later run can resume them.
func (p *Pool) RequestImmediateShutdown() {
	p.mu.Lock()
	p.shuttingDown = true
	p.immediate = true
	p.dropPendingLocked()
	p.mu.Unlock()
	p.schedule()
}

// Pause stops new dispatch without disturbing active jobs.
func (p *Pool) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume re-enables dispatch.
func (p *Pool) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.schedule()
}

// Cancel best-effort cancels one job, pending or running.
func (p *Pool) Cancel(jobID int64) bool {
	p.mu.Lock()
	for i, job := range p.pending {
		if job.ID == jobID {
			job.State = StateCancelled
			job.EndTime = time.Now()
			p.pending = append(p.pending[:i:i], p.pending[i+1:]...)
			p.counters.Cancelled++
			p.mu.Unlock()
			p.schedule()
			return true
		}
	}
	job, ok := p.active[jobID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	job.State = StateCancelled
	job.EndTime = time.Now()
	delete(p.active, jobID)
	p.counters.Cancelled++
	p.mu.Unlock()

	p.deps.Kill(jobID)
	p.schedule()
	return true
}

// Snapshot returns the counters-only state spec.md §3 specifies.
func (p *Pool) Snapshot() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	return PipelineState{
		TotalAdded:       p.counters.TotalAdded,
		Completed:        p.counters.Completed,
		Failed:           p.counters.Failed,
		Cancelled:        p.counters.Cancelled,
		TotalOutputBytes: p.counters.TotalOutputBytes,
		ActiveJobIDs:     ids,
	}
}

// ActiveCount reports the number of jobs currently running, for tests and
// the terminal UI's sizing decisions.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// dropPendingLocked clears the pending queue, marking every job cancelled.
// Caller holds p.mu.
func (p *Pool) dropPendingLocked() int {
	n := len(p.pending)
	for _, job := range p.pending {
		job.State = StateCancelled
		job.EndTime = time.Now()
	}
	p.counters.Cancelled += n
	p.pending = nil
	return n
}

// runJob drives one job end to end: ledger.Start, the encoder driver, then
// hands the result to jobDone. Runs in its own goroutine; the pool's
// concurrency bound is the number of goroutines alive at once.
func (p *Pool) runJob(job *Job) {
	p.deps.Observer.OnJobStart(job)

	var sourceBytes *int64
	if info, err := os.Stat(job.SourcePath); err == nil {
		b := info.Size()
		sourceBytes = &b
	}
	if err := p.deps.Ledger.Start(job.SourcePath, job.TargetPath, sourceBytes); err != nil {
		log.Printf("[pool] ledger start %s: %v", job.SourcePath, err)
	}

	onProgress := func(percent int, currentSeconds float64) {
		p.mu.Lock()
		if percent < job.Percent {
			percent = job.Percent
		}
		if percent > 100 {
			percent = 100
		}
		job.Percent = percent
		cs := currentSeconds
		job.CurrentTimeSeconds = &cs
		p.mu.Unlock()
		p.deps.Observer.OnJobProgress(job, percent, currentSeconds)
	}

	encJob := encoder.Job{ID: job.ID, SourcePath: job.SourcePath, TargetPath: job.TargetPath}
	result, _ := p.deps.Run(context.Background(), encJob, onProgress, p.deps.Settings, p.deps.Verbose)

	p.jobDone(job, result)
}

// jobDone is the single place a job transitions out of running. If the
// pool already marked this job cancelled (a bulk shutdown or a direct
// Cancel beat the encoder to the punch), the ledger keeps its processing
// row and no completion callback fires (spec.md §4.D invariant 2).
func (p *Pool) jobDone(job *Job, result encoder.Result) {
	p.mu.Lock()
	if job.State == StateCancelled {
		p.mu.Unlock()
		return
	}
	delete(p.active, job.ID)
	job.EndTime = time.Now()

	jr := JobResult{Success: result.Success, ErrorText: result.ErrorText, OutputBytes: result.OutputBytes}
	if result.Success {
		job.State = StateCompleted
		job.Percent = 100
		ob := result.OutputBytes
		job.OutputBytes = &ob
		p.counters.Completed++
		p.counters.TotalOutputBytes += result.OutputBytes
	} else {
		job.State = StateFailed
		job.ErrorText = result.ErrorText
		p.counters.Failed++
	}
	p.mu.Unlock()

	if result.Success {
		if err := p.deps.Ledger.Complete(job.SourcePath, result.OutputBytes); err != nil {
			log.Printf("[pool] ledger complete %s: %v", job.SourcePath, err)
		}
	} else {
		if err := p.deps.Ledger.Fail(job.SourcePath, result.ErrorText); err != nil {
			log.Printf("[pool] ledger fail %s: %v", job.SourcePath, err)
		}
	}

	// Re-enter the scheduling loop before telling the observer: the next
	// job's start latency must not wait on an observer's render pass.
	p.schedule()

	p.deps.Observer.OnJobComplete(job, jr)
	p.deps.Observer.OnStateChange(p.Snapshot())
}
