package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kennethjefferson/ffmpeg-processor/internal/ledger"
)

func openTest(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), ledger.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestInspectSeparatesProcessingFromFailed(t *testing.T) {
	l := openTest(t)
	require.NoError(t, l.Start("/a.mp4", "/a.mp3", nil))
	require.NoError(t, l.Start("/b.mp4", "/b.mp3", nil))
	require.NoError(t, l.Fail("/b.mp4", "invalid_input"))

	report, err := Inspect(l)
	require.NoError(t, err)
	require.Len(t, report.Processing, 1)
	require.Equal(t, "/a.mp4", report.Processing[0].SourcePath)
	require.Len(t, report.Failed, 1)
	require.Equal(t, "/b.mp4", report.Failed[0].SourcePath)
}

func TestCleanupDryRunChangesNothing(t *testing.T) {
	l := openTest(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "a.mp3")
	require.NoError(t, os.WriteFile(target, []byte("partial"), 0o644))
	require.NoError(t, l.Start("/a.mp4", target, nil))

	result, err := Cleanup(l, true)
	require.NoError(t, err)
	require.True(t, result.DryRun)
	require.Equal(t, []string{target}, result.TargetsGone)
	require.Equal(t, []string{"/a.mp4"}, result.RecordsDrop)

	_, statErr := os.Stat(target)
	require.NoError(t, statErr)
	rec, err := l.Get("/a.mp4")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestCleanupRoundTrip(t *testing.T) {
	// spec.md §8 law: processing+target_exists -> cleanup -> record
	// deleted+target missing -> run -> complete+target exists.
	l := openTest(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "a.mp3")
	require.NoError(t, os.WriteFile(target, []byte("partial"), 0o644))
	require.NoError(t, l.Start("/a.mp4", target, nil))

	result, err := Cleanup(l, false)
	require.NoError(t, err)
	require.Equal(t, []string{target}, result.TargetsGone)

	_, statErr := os.Stat(target)
	require.True(t, os.IsNotExist(statErr))
	rec, err := l.Get("/a.mp4")
	require.NoError(t, err)
	require.Nil(t, rec)

	require.NoError(t, l.Start("/a.mp4", target, nil))
	require.NoError(t, os.WriteFile(target, []byte("full"), 0o644))
	require.NoError(t, l.Complete("/a.mp4", 4))
	rec, err = l.Get("/a.mp4")
	require.NoError(t, err)
	require.Equal(t, ledger.StateComplete, rec.State)
}
