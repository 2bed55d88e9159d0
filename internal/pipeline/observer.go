package pipeline

import (
	"github.com/kennethjefferson/ffmpeg-processor/internal/pool"
	"github.com/kennethjefferson/ffmpeg-processor/internal/walker"
)

// Observer is the full out-of-scope "Terminal UI rendering" collaborator
// spec.md §1 names: a pure observer of both the pool's callbacks and the
// walker events the controller routes to it directly (spec.md §4.E step 3:
// "directory events to the observer, skipped/error to counter updates").
type Observer interface {
	pool.Observer
	OnDirectory(path string)
	OnSkipped(file walker.DiscoveredFile, reason walker.SkipReason)
	OnWalkError(path, msg string)
}

// NopObserver implements Observer with no-ops.
type NopObserver struct {
	pool.NopObserver
}

func (NopObserver) OnDirectory(string)                             {}
func (NopObserver) OnSkipped(walker.DiscoveredFile, walker.SkipReason) {}
func (NopObserver) OnWalkError(string, string)                      {}
