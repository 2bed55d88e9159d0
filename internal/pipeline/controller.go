// Package pipeline implements the pipeline controller of spec.md §4.E: the
// single-shot orchestrator that wires the walker's output into the pool's
// input, owns the Ledger handle, and translates signal events into
// shutdown requests.
package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kennethjefferson/ffmpeg-processor/internal/config"
	"github.com/kennethjefferson/ffmpeg-processor/internal/encoder"
	"github.com/kennethjefferson/ffmpeg-processor/internal/ledger"
	"github.com/kennethjefferson/ffmpeg-processor/internal/pool"
	"github.com/kennethjefferson/ffmpeg-processor/internal/walker"
)

// Controller is a single-shot orchestrator for one invocation (spec.md
// §4.E).
type Controller struct {
	opts     config.Options
	observer Observer
	watcher  *SignalWatcher
}

// New constructs a controller. observer may be nil, in which case every
// callback is a no-op.
func New(opts config.Options, observer Observer, watcher *SignalWatcher) *Controller {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Controller{opts: opts, observer: observer, watcher: watcher}
}

// Result is what Run reports back to the CLI entrypoint.
type Result struct {
	DryRun      bool
	WalkStats   walker.Stats
	Summary     pool.Summary
	NothingToDo bool
	Reason      string
}

// Run executes preflight, then either the dry-run or the live path
// (spec.md §4.E).
func (c *Controller) Run() (Result, error) {
	if err := c.preflight(); err != nil {
		return Result{}, err
	}
	if c.opts.DryRun {
		return c.runDryRun()
	}
	return c.runLive()
}

// preflight validates the encoder binary and the input root, failing fast
// with a classified error if either is absent (spec.md §4.E step 1).
func (c *Controller) preflight() error {
	if err := encoder.ValidateBinary(c.opts.EncoderSettings); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	info, err := os.Stat(c.opts.InputRoot)
	if err != nil {
		return fmt.Errorf("preflight: input root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("preflight: input root %s is not a directory", c.opts.InputRoot)
	}
	return nil
}

func (c *Controller) ledgerPath() string {
	return filepath.Join(c.opts.InputRoot, ledger.FileName)
}

// runDryRun drives the walker in an aggregating, write-free mode: no
// Ledger.start/complete/fail call and no encoder child spawns (spec.md §8,
// "Dry-run purity").
func (c *Controller) runDryRun() (Result, error) {
	l, err := ledger.Open(c.ledgerPath())
	if err != nil {
		return Result{}, fmt.Errorf("open ledger: %w", err)
	}
	defer l.Close()

	events := walker.Walk(c.opts.InputRoot, walker.Options{
		Recursive:   c.opts.Recursive,
		Concurrency: c.opts.Scanners,
	}, ledgerReaderAdapter{l})

	var stats walker.Stats
	for ev := range events {
		if ev.Kind == walker.EventComplete {
			stats = ev.Stats
		}
	}

	result := Result{DryRun: true, WalkStats: stats}
	result.NothingToDo, result.Reason = nothingToDoReason(stats)
	return result, nil
}

// runLive opens the Ledger, builds the pool, and concurrently drains the
// walker's events into it until the queue completes (spec.md §4.E step 3).
func (c *Controller) runLive() (Result, error) {
	l, err := ledger.Open(c.ledgerPath())
	if err != nil {
		return Result{}, fmt.Errorf("open ledger: %w", err)
	}
	defer l.Close()

	p := pool.New(c.opts.Concurrency, pool.Deps{
		Ledger:   l,
		Settings: c.opts.EncoderSettings,
		Verbose:  c.opts.Verbose,
		Observer: c.observer,
	})

	if c.watcher != nil {
		c.watcher.SetHandlers(p.RequestGracefulShutdown, p.RequestImmediateShutdown)
		defer c.watcher.Reset()
	}

	future := p.Start()

	events := walker.Walk(c.opts.InputRoot, walker.Options{
		Recursive:   c.opts.Recursive,
		Concurrency: c.opts.Scanners,
	}, ledgerReaderAdapter{l})

	var walkStats walker.Stats
	for ev := range events {
		switch ev.Kind {
		case walker.EventFile:
			p.Add(ev.File.Path, ev.File.TargetPath)
		case walker.EventDirectory:
			c.observer.OnDirectory(ev.DirPath)
		case walker.EventSkipped:
			c.observer.OnSkipped(ev.File, ev.Reason)
		case walker.EventError:
			c.observer.OnWalkError(ev.ErrPath, ev.ErrMsg)
			log.Printf("[pipeline] walk error at %s: %s", ev.ErrPath, ev.ErrMsg)
		case walker.EventComplete:
			walkStats = ev.Stats
			p.MarkScanComplete()
		}
	}

	summary := future.Wait()

	result := Result{Summary: summary, WalkStats: walkStats}
	result.NothingToDo, result.Reason = nothingToDoReason(walkStats)
	return result, nil
}

// nothingToDoReason surfaces spec.md §4.E's user-facing message when the
// walk found nothing to convert.
func nothingToDoReason(stats walker.Stats) (bool, string) {
	if stats.ToProcess > 0 {
		return false, ""
	}
	if stats.TotalFound == 0 {
		return true, "no candidate video files found"
	}
	return true, "all candidates already have companions"
}

// ledgerReaderAdapter satisfies walker.LedgerReader against the real,
// concrete ledger.
type ledgerReaderAdapter struct {
	l *ledger.Ledger
}

func (a ledgerReaderAdapter) Get(source string) (walker.LedgerRecord, error) {
	rec, err := a.l.Get(source)
	if err != nil {
		return walker.LedgerRecord{}, err
	}
	if rec == nil {
		return walker.LedgerRecord{}, nil
	}
	return walker.LedgerRecord{Found: true, Complete: rec.State == ledger.StateComplete}, nil
}
