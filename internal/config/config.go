// Package config resolves spec.md §3's Options record: CLI flags first,
// then an optional layered file/env override of the encoder defaults
// (SPEC_FULL.md §3.1).
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/kennethjefferson/ffmpeg-processor/internal/encoder"
)

// defaultConfigPath is read when --config is not given and the file exists.
const defaultConfigPath = "ffmpeg-processor.yaml"

// Options is the immutable options record spec.md §3 specifies.
type Options struct {
	InputRoot   string
	Recursive   bool
	Concurrency int
	Scanners    int
	DryRun      bool
	Verbose     bool
	Verify      bool
	Cleanup     bool
	Yes         bool
	ConfigPath  string

	EncoderSettings encoder.Settings
}

// Parse reads the command-line flags documented in spec.md §6 (plus the
// ambient --config/--yes additions from SPEC_FULL.md §6), layers the
// optional encoder-defaults file/env config underneath, and clamps
// concurrency/scanners to their documented ranges.
func Parse(args []string) (Options, error) {
	fs := flag.NewFlagSet("ffmpeg-processor", flag.ContinueOnError)

	input := fs.String("input", "", "input root directory (required)")
	fs.StringVar(input, "i", "", "input root directory (required) (shorthand)")
	recursive := fs.Bool("recursive", false, "recursive walk")
	fs.BoolVar(recursive, "r", false, "recursive walk (shorthand)")
	concurrency := fs.Int("concurrency", 10, "worker pool size, clamped to [1,25]")
	fs.IntVar(concurrency, "c", 10, "worker pool size (shorthand)")
	scanners := fs.Int("scanners", 5, "walker directory concurrency, clamped to [1,20]")
	fs.IntVar(scanners, "s", 5, "walker directory concurrency (shorthand)")
	dryRun := fs.Bool("dry-run", false, "scan only, print classification totals")
	fs.BoolVar(dryRun, "d", false, "scan only (shorthand)")
	verbose := fs.Bool("verbose", false, "forward encoder diagnostics to stderr")
	fs.BoolVar(verbose, "v", false, "forward encoder diagnostics (shorthand)")
	verify := fs.Bool("verify", false, "read-only ledger report of processing/failed records")
	cleanup := fs.Bool("cleanup", false, "delete target files of processing/failed records and drop those records")
	yes := fs.Bool("yes", false, "skip the cleanup confirmation prompt")
	configPath := fs.String("config", "", "optional YAML file of encoder defaults")

	binaryPath := fs.String("encoder-binary", "", "explicit encoder binary path")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	opts := Options{
		InputRoot:   *input,
		Recursive:   *recursive,
		Concurrency: clamp(*concurrency, 1, 25),
		Scanners:    clamp(*scanners, 1, 20),
		DryRun:      *dryRun,
		Verbose:     *verbose,
		Verify:      *verify,
		Cleanup:     *cleanup,
		Yes:         *yes,
		ConfigPath:  *configPath,
	}
	if opts.ConfigPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			opts.ConfigPath = defaultConfigPath
		}
	}

	defaults, err := LoadEncoderDefaults(opts.ConfigPath)
	if err != nil {
		return Options{}, fmt.Errorf("load encoder defaults: %w", err)
	}
	opts.EncoderSettings = defaults
	if *binaryPath != "" {
		opts.EncoderSettings.BinaryPath = *binaryPath
	}

	if opts.InputRoot == "" {
		return Options{}, fmt.Errorf("--input is required")
	}

	return opts, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
