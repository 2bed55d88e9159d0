// Package ui renders the terminal view of one pipeline run: a live,
// sorted table of jobs plus the scan/queue-complete summaries (spec.md §9,
// "Terminal UI rendering"). It is a pure observer; it never mutates the
// ledger or touches the pool directly.
package ui

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/kennethjefferson/ffmpeg-processor/internal/pool"
	"github.com/kennethjefferson/ffmpeg-processor/internal/walker"
)

const windowSize = 500

var (
	styleRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	stylePending   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleCancelled = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	styleHeading   = lipgloss.NewStyle().Bold(true).Underline(true)
	styleDim       = lipgloss.NewStyle().Faint(true)
)

// row is the UI's own copy of what it needs to render one job, decoupled
// from pool.Job's internal field set.
type row struct {
	id       int64
	source   string
	state    pool.State
	percent  int
	endedAt  time.Time
	errText  string
}

// Renderer is a pool.Observer and pipeline.Observer that keeps a bounded,
// priority-sorted window of recent jobs and re-draws it on every event
// (spec.md §9's design note on the sliding window).
type Renderer struct {
	out io.Writer

	mu      sync.Mutex
	rows    map[int64]*row
	order   []int64 // insertion order, for eviction past windowSize
	dirs    int
	skipped int
	errors  int
}

// New constructs a Renderer writing to w.
func New(w io.Writer) *Renderer {
	return &Renderer{out: w, rows: make(map[int64]*row)}
}

func (r *Renderer) upsert(j *pool.Job) *row {
	rw, ok := r.rows[j.ID]
	if !ok {
		rw = &row{id: j.ID, source: j.SourcePath}
		r.rows[j.ID] = rw
		r.order = append(r.order, j.ID)
		r.evictLocked()
	}
	rw.state = j.State
	rw.percent = j.Percent
	rw.endedAt = j.EndTime
	rw.errText = j.ErrorText
	return rw
}

// evictLocked drops the oldest rows past windowSize, preferring to keep
// anything still running. Caller holds r.mu.
func (r *Renderer) evictLocked() {
	for len(r.order) > windowSize {
		oldest := r.order[0]
		if rw, ok := r.rows[oldest]; ok && rw.state == pool.StateRunning {
			// Never evict an active job; rotate it to the back instead.
			r.order = append(r.order[1:], oldest)
			continue
		}
		r.order = r.order[1:]
		delete(r.rows, oldest)
	}
}

// OnFileAdded implements pool.Observer.
func (r *Renderer) OnFileAdded(j *pool.Job) {
	r.mu.Lock()
	r.upsert(j)
	r.mu.Unlock()
	r.render()
}

// OnJobStart implements pool.Observer.
func (r *Renderer) OnJobStart(j *pool.Job) {
	r.mu.Lock()
	r.upsert(j)
	r.mu.Unlock()
	r.render()
}

// OnJobProgress implements pool.Observer.
func (r *Renderer) OnJobProgress(j *pool.Job, percent int, currentSeconds float64) {
	r.mu.Lock()
	r.upsert(j)
	r.mu.Unlock()
	r.render()
}

// OnJobComplete implements pool.Observer.
func (r *Renderer) OnJobComplete(j *pool.Job, result pool.JobResult) {
	r.mu.Lock()
	r.upsert(j)
	r.mu.Unlock()
	r.render()
}

// OnScanComplete implements pool.Observer.
func (r *Renderer) OnScanComplete() {
	fmt.Fprintln(r.out, styleDim.Render("scan complete, draining queue..."))
}

// OnQueueComplete implements pool.Observer; it prints the final summary
// line spec.md §4.D's Summary describes.
func (r *Renderer) OnQueueComplete(summary pool.Summary) {
	fmt.Fprintln(r.out, styleHeading.Render("done"))
	fmt.Fprintf(r.out, "  added: %d  completed: %d  failed: %d  cancelled: %d\n",
		summary.TotalAdded, summary.Completed, summary.Failed, summary.Cancelled)
	fmt.Fprintf(r.out, "  output: %s  elapsed: %s\n",
		humanize.Bytes(uint64(summary.TotalOutputBytes)), summary.TotalTime.Round(time.Second))
}

// OnStateChange implements pool.Observer; the per-event render already
// reflects the current snapshot, so this is a no-op.
func (r *Renderer) OnStateChange(state pool.PipelineState) {}

// OnDirectory implements pipeline.Observer.
func (r *Renderer) OnDirectory(path string) {
	r.mu.Lock()
	r.dirs++
	r.mu.Unlock()
}

// OnSkipped implements pipeline.Observer.
func (r *Renderer) OnSkipped(file walker.DiscoveredFile, reason walker.SkipReason) {
	r.mu.Lock()
	r.skipped++
	r.mu.Unlock()
}

// OnWalkError implements pipeline.Observer.
func (r *Renderer) OnWalkError(path, msg string) {
	r.mu.Lock()
	r.errors++
	r.mu.Unlock()
	fmt.Fprintln(r.out, styleFailed.Render(fmt.Sprintf("walk error: %s: %s", path, msg)))
}

// render redraws the current window, sorted by state priority (spec.md §9:
// running, then failed, then recently-completed, then pending, then
// cancelled, then older completions).
func (r *Renderer) render() {
	r.mu.Lock()
	rows := make([]*row, 0, len(r.rows))
	for _, rw := range r.rows {
		rows = append(rows, rw)
	}
	dirs, skipped, errors := r.dirs, r.skipped, r.errors
	r.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		pi, pj := priority(rows[i]), priority(rows[j])
		if pi != pj {
			return pi < pj
		}
		return rows[i].id < rows[j].id
	})

	fmt.Fprint(r.out, "\033[2J\033[H")
	fmt.Fprintln(r.out, styleHeading.Render("ffmpeg-processor"))
	fmt.Fprintf(r.out, "%s  dirs=%d skipped=%d errors=%d\n\n", styleDim.Render("scan:"), dirs, skipped, errors)

	for _, rw := range rows {
		fmt.Fprintln(r.out, formatRow(rw))
	}
}

func priority(rw *row) int {
	switch rw.state {
	case pool.StateRunning:
		return 0
	case pool.StateFailed:
		return 1
	case pool.StateCompleted:
		if time.Since(rw.endedAt) < 1500*time.Millisecond {
			return 2
		}
		return 5
	case pool.StatePending:
		return 3
	case pool.StateCancelled:
		return 4
	default:
		return 6
	}
}

func formatRow(rw *row) string {
	switch rw.state {
	case pool.StateRunning:
		return styleRunning.Render(fmt.Sprintf("  %3d%%  %s", rw.percent, rw.source))
	case pool.StateFailed:
		return styleFailed.Render(fmt.Sprintf("  FAIL  %s  (%s)", rw.source, rw.errText))
	case pool.StateCompleted:
		return styleCompleted.Render(fmt.Sprintf("  done  %s", rw.source))
	case pool.StateCancelled:
		return styleCancelled.Render(fmt.Sprintf("  skip  %s", rw.source))
	default:
		return stylePending.Render(fmt.Sprintf("  wait  %s", rw.source))
	}
}

// Confirm asks the user to confirm a cleanup, unless skip is set
// (spec.md §6's --yes flag), matching the huh.Confirm pattern the corpus
// uses for destructive prompts.
func Confirm(prompt string, skip bool) bool {
	if skip {
		return true
	}
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return confirmed
}
