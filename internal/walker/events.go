// Package walker implements the parallel directory walker of spec.md §4.C:
// a bounded set of cooperative workers drain a shared directory queue,
// filter to recognized video extensions, probe for companion artifacts,
// consult the ledger, and emit a lazy, finite event stream.
package walker

// EventKind discriminates the tagged event variants spec.md §4.C produces.
type EventKind int

const (
	EventFile EventKind = iota
	EventSkipped
	EventDirectory
	EventError
	EventComplete
)

// SkipReason is carried by an EventSkipped event.
type SkipReason string

const (
	SkipSubtitle SkipReason = "subtitle"
	SkipAudio    SkipReason = "audio"
)

// DiscoveredFile mirrors spec.md §3's DiscoveredFile: created by the
// walker, consumed by the pool's enqueue, then discarded.
type DiscoveredFile struct {
	Path               string
	Basename           string
	Extension          string
	Directory          string
	Size               int64
	HasSiblingAudio    bool
	HasSiblingSubtitle bool
	ShouldSkip         bool
	TargetPath         string
}

// Stats are the counters spec.md §4.C requires, returned in the terminal
// Complete event.
type Stats struct {
	TotalFound     int
	ToProcess      int
	SkippedAudio   int
	SkippedSubtitle int
	Errors         int
}

// Event is one tagged variant of the walker's output stream. Only the
// fields marked with its Kind below are populated.
type Event struct {
	Kind EventKind

	File    DiscoveredFile // EventFile, EventSkipped
	Reason  SkipReason      // EventSkipped
	DirPath string          // EventDirectory
	ErrPath string          // EventError
	ErrMsg  string          // EventError
	Stats   Stats           // EventComplete
}

// recognizedExtensionGlob is the doublestar glob spec.md §4.C names: the
// candidate-video extension set.
const recognizedExtensionGlob = "*.{mp4,avi,mkv,wmv,mov,webm,flv}"
