package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kennethjefferson/ffmpeg-processor/internal/pool"
)

func TestOnJobCompleteRendersWithoutPanicking(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	job := &pool.Job{ID: 1, SourcePath: "/a.mp4", State: pool.StateRunning, Percent: 40}
	r.OnFileAdded(job)
	r.OnJobStart(job)
	r.OnJobProgress(job, 80, 12.5)

	job.State = pool.StateCompleted
	job.Percent = 100
	job.EndTime = time.Now()
	r.OnJobComplete(job, pool.JobResult{Success: true, OutputBytes: 2048})

	require.Contains(t, buf.String(), "/a.mp4")
}

func TestOnQueueCompletePrintsSummary(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.OnQueueComplete(pool.Summary{TotalAdded: 3, Completed: 2, Failed: 1, TotalTime: 5 * time.Second})
	out := buf.String()
	require.Contains(t, out, "added: 3")
	require.Contains(t, out, "completed: 2")
	require.Contains(t, out, "failed: 1")
}

func TestWindowEvictsOldestNonRunningRow(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	for i := int64(1); i <= windowSize+10; i++ {
		job := &pool.Job{ID: i, SourcePath: "/f.mp4", State: pool.StateCompleted, EndTime: time.Now().Add(-time.Hour)}
		r.OnJobComplete(job, pool.JobResult{Success: true})
	}
	r.mu.Lock()
	count := len(r.rows)
	r.mu.Unlock()
	require.LessOrEqual(t, count, windowSize)
}

func TestConfirmSkipsPromptWhenYes(t *testing.T) {
	require.True(t, Confirm("proceed?", true))
}
