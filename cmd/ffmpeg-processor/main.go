package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kennethjefferson/ffmpeg-processor/internal/config"
	"github.com/kennethjefferson/ffmpeg-processor/internal/ledger"
	"github.com/kennethjefferson/ffmpeg-processor/internal/pipeline"
	"github.com/kennethjefferson/ffmpeg-processor/internal/ui"
	"github.com/kennethjefferson/ffmpeg-processor/internal/verify"
)

func main() {
	opts, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ffmpeg-processor:", err)
		os.Exit(1)
	}

	if opts.Verify || opts.Cleanup {
		os.Exit(runVerify(opts))
	}

	watcher := pipeline.NewSignalWatcher()
	renderer := ui.New(os.Stdout)

	ctrl := pipeline.New(opts, renderer, watcher)
	result, err := ctrl.Run()
	if err != nil {
		log.Printf("ffmpeg-processor: %v", err)
		os.Exit(1)
	}

	if result.NothingToDo {
		fmt.Println(result.Reason)
		os.Exit(0)
	}

	if result.DryRun {
		fmt.Printf("would convert %d file(s), skip %d (audio) + %d (subtitle), %d error(s)\n",
			result.WalkStats.ToProcess, result.WalkStats.SkippedAudio,
			result.WalkStats.SkippedSubtitle, result.WalkStats.Errors)
		os.Exit(0)
	}

	if result.Summary.Failed > 0 {
		os.Exit(1)
	}
}

// runVerify drives the out-of-band verify/cleanup command mode (spec.md
// §4.F), bypassing the pipeline controller entirely.
func runVerify(opts config.Options) int {
	l, err := ledger.Open(filepath.Join(opts.InputRoot, ledger.FileName))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ffmpeg-processor:", err)
		return 1
	}
	defer l.Close()

	report, err := verify.Inspect(l)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ffmpeg-processor:", err)
		return 1
	}
	fmt.Printf("processing: %d  failed: %d\n", len(report.Processing), len(report.Failed))
	for _, rec := range report.Failed {
		fmt.Printf("  FAIL  %s  %s\n", rec.SourcePath, rec.Error)
	}

	if !opts.Cleanup {
		return 0
	}
	if len(report.Processing) == 0 && len(report.Failed) == 0 {
		fmt.Println("nothing to clean up")
		return 0
	}

	if !opts.DryRun && !ui.Confirm(fmt.Sprintf("delete %d stale target(s) and drop their ledger record(s)?",
		len(report.Processing)+len(report.Failed)), opts.Yes) {
		fmt.Println("cleanup aborted")
		return 0
	}

	result, err := verify.Cleanup(l, opts.DryRun)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ffmpeg-processor:", err)
		return 1
	}
	if result.DryRun {
		fmt.Printf("would remove %d target(s), would drop %d record(s)\n", len(result.TargetsGone), len(result.RecordsDrop))
	} else {
		fmt.Printf("removed %d target(s), dropped %d record(s)\n", len(result.TargetsGone), len(result.RecordsDrop))
	}
	return 0
}
