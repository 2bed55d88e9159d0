package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kennethjefferson/ffmpeg-processor/internal/encoder"
	"github.com/stretchr/testify/require"
)

// fakeLedger is a hand-written stand-in, matching the corpus's
// no-mocking-framework texture.
type fakeLedger struct {
	mu        sync.Mutex
	started   []string
	completed []string
	failed    []string
}

func (f *fakeLedger) Start(source, target string, sourceBytes *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, source)
	return nil
}

func (f *fakeLedger) Complete(source string, outputBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, source)
	return nil
}

func (f *fakeLedger) Fail(source, errText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, source)
	return nil
}

// fakeObserver records every callback invocation for assertions.
type fakeObserver struct {
	NopObserver
	mu        sync.Mutex
	completes []JobResult
	summary   *Summary
	scanDone  bool
}

func (o *fakeObserver) OnJobComplete(job *Job, result JobResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completes = append(o.completes, result)
}

func (o *fakeObserver) OnScanComplete() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scanDone = true
}

func (o *fakeObserver) OnQueueComplete(s Summary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := s
	o.summary = &cp
}

// instantRunner returns result immediately for every job it is handed.
func instantRunner(result encoder.Result) Runner {
	return func(ctx context.Context, job encoder.Job, onProgress encoder.ProgressFunc, settings encoder.Settings, verbose bool) (encoder.Result, error) {
		return result, nil
	}
}

// blockingRunner blocks until ctx is cancelled (simulating a still-running
// encode) then reports failure, as encoder.Run does when its child is killed.
func blockingRunner(started chan int64) Runner {
	return func(ctx context.Context, job encoder.Job, onProgress encoder.ProgressFunc, settings encoder.Settings, verbose bool) (encoder.Result, error) {
		started <- job.ID
		<-ctx.Done()
		return encoder.Result{Success: false, ErrorText: "killed"}, nil
	}
}

func TestConcurrencyNeverExceedsLimit(t *testing.T) {
	const concurrency = 2
	ledger := &fakeLedger{}
	observer := &fakeObserver{}

	var mu sync.Mutex
	maxActive := 0
	gate := make(chan struct{})

	run := func(ctx context.Context, job encoder.Job, onProgress encoder.ProgressFunc, settings encoder.Settings, verbose bool) (encoder.Result, error) {
		<-gate
		return encoder.Result{Success: true, OutputBytes: 10}, nil
	}

	p := New(concurrency, Deps{Ledger: ledger, Observer: observer, Run: run})
	future := p.Start()
	for i := 0; i < 10; i++ {
		p.Add("/src/a.mp4", "/src/a.mp3")
	}
	p.MarkScanComplete()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n := p.ActiveCount()
		mu.Lock()
		if n > maxActive {
			maxActive = n
		}
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.LessOrEqual(t, maxActive, concurrency)
	close(gate)

	summary := future.Wait()
	require.Equal(t, 10, summary.Completed)
	require.Equal(t, 10, summary.TotalAdded)
}

func TestScanCompleteWithEmptyQueueFinishesImmediately(t *testing.T) {
	p := New(4, Deps{Ledger: &fakeLedger{}, Run: instantRunner(encoder.Result{Success: true})})
	future := p.Start()
	p.MarkScanComplete()
	summary := future.Wait()
	require.Equal(t, 0, summary.TotalAdded)
}

func TestFailedJobWritesLedgerFailAndCounts(t *testing.T) {
	ledger := &fakeLedger{}
	p := New(2, Deps{Ledger: ledger, Run: instantRunner(encoder.Result{Success: false, ErrorText: "invalid_input"})})
	future := p.Start()
	p.Add("/a.mp4", "/a.mp3")
	p.MarkScanComplete()
	summary := future.Wait()

	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 0, summary.Completed)
	require.Equal(t, []string{"/a.mp4"}, ledger.failed)
	require.Empty(t, ledger.completed)
}

func TestGracefulShutdownDropsPendingButLetsActiveFinish(t *testing.T) {
	// Scenario 3 (spec.md §8): 5 active + 95 pending, graceful shutdown
	// drops the pending and lets the active 5 finish as completed.
	ledger := &fakeLedger{}
	gate := make(chan struct{})
	started := make(chan int64, 5)

	run := func(ctx context.Context, job encoder.Job, onProgress encoder.ProgressFunc, settings encoder.Settings, verbose bool) (encoder.Result, error) {
		started <- job.ID
		<-gate
		return encoder.Result{Success: true, OutputBytes: 1}, nil
	}

	p := New(5, Deps{Ledger: ledger, Run: run})
	future := p.Start()
	for i := 0; i < 100; i++ {
		p.Add("/v.mp4", "/v.mp3")
	}

	for i := 0; i < 5; i++ {
		<-started
	}

	p.RequestGracefulShutdown()
	close(gate)

	summary := future.Wait()
	require.Equal(t, 5, summary.Completed)
	require.Equal(t, 95, summary.Cancelled)
	require.Equal(t, 100, summary.TotalAdded)
}

func TestImmediateShutdownKillsActiveAndLeavesLedgerProcessing(t *testing.T) {
	// Scenario 4 (spec.md §8): immediate shutdown kills active children;
	// their ledger rows must not receive a Fail call.
	ledger := &fakeLedger{}
	started := make(chan int64, 3)
	killed := make(chan struct{})

	run := func(ctx context.Context, job encoder.Job, onProgress encoder.ProgressFunc, settings encoder.Settings, verbose bool) (encoder.Result, error) {
		started <- job.ID
		<-ctx.Done()
		close(killed)
		return encoder.Result{Success: false, ErrorText: "killed"}, nil
	}

	var killAllCalled bool
	var mu sync.Mutex
	killAll := func(cleanup bool) []string {
		mu.Lock()
		killAllCalled = true
		mu.Unlock()
		return nil
	}

	p := New(3, Deps{Ledger: ledger, Run: run, KillAll: killAll})
	future := p.Start()
	for i := 0; i < 3; i++ {
		p.Add("/v.mp4", "/v.mp3")
	}
	for i := 0; i < 3; i++ {
		<-started
	}

	p.RequestImmediateShutdown()

	summary := future.Wait()
	mu.Lock()
	require.True(t, killAllCalled)
	mu.Unlock()
	require.Equal(t, 3, summary.Cancelled)
	require.Equal(t, 0, summary.Completed)
	require.Equal(t, 0, summary.Failed)
	require.Empty(t, ledger.failed)
	require.Empty(t, ledger.completed)
}

func TestCancelPendingJobNeverStarts(t *testing.T) {
	ledger := &fakeLedger{}
	gate := make(chan struct{})
	run := func(ctx context.Context, job encoder.Job, onProgress encoder.ProgressFunc, settings encoder.Settings, verbose bool) (encoder.Result, error) {
		<-gate
		return encoder.Result{Success: true}, nil
	}

	p := New(1, Deps{Ledger: ledger, Run: run})
	future := p.Start()
	first := p.Add("/a.mp4", "/a.mp3")
	second := p.Add("/b.mp4", "/b.mp3")

	require.True(t, p.Cancel(second.ID))
	p.MarkScanComplete()
	close(gate)

	summary := future.Wait()
	require.Equal(t, 1, summary.Completed)
	require.Equal(t, 1, summary.Cancelled)
	require.Equal(t, StateCancelled, second.State)
	_ = first
}

func TestOnJobCompleteNotEmittedForCancelledJob(t *testing.T) {
	ledger := &fakeLedger{}
	observer := &fakeObserver{}
	started := make(chan int64, 1)

	run := func(ctx context.Context, job encoder.Job, onProgress encoder.ProgressFunc, settings encoder.Settings, verbose bool) (encoder.Result, error) {
		started <- job.ID
		<-ctx.Done()
		return encoder.Result{Success: false, ErrorText: "killed"}, nil
	}

	p := New(1, Deps{Ledger: ledger, Observer: observer, Run: run, KillAll: func(bool) []string { return nil }})
	future := p.Start()
	p.Add("/a.mp4", "/a.mp3")
	<-started
	p.RequestImmediateShutdown()
	future.Wait()

	observer.mu.Lock()
	defer observer.mu.Unlock()
	require.Empty(t, observer.completes)
}
