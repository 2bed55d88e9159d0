package walker

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// LedgerReader is the slice of the ledger the walker needs: a lookup by
// source path. Keeping it an interface (rather than importing
// internal/ledger's concrete type) lets walker tests fake it without a real
// database.
type LedgerReader interface {
	Get(source string) (LedgerRecord, error)
}

// LedgerRecord is the subset of a ledger record the walker looks up
// (spec.md §4.C). The skip decision itself rests on the sibling files; a
// failed lookup turns the file into an error event.
type LedgerRecord struct {
	Found   bool
	Complete bool
}

// Options controls one walk (spec.md §4.C: recursive, directory_concurrency).
type Options struct {
	Recursive   bool
	Concurrency int // clamped to [1,20] by the caller (spec.md §3)
}

// Walk traverses root and returns a channel of events. The channel is
// closed after exactly one EventComplete has been sent.
func Walk(root string, opts Options, reader LedgerReader) <-chan Event {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 20 {
		concurrency = 20
	}

	events := make(chan Event, 256)
	w := &walk{
		recursive: opts.Recursive,
		reader:    reader,
		events:    events,
		queue:     newDirQueue(),
	}

	w.pending.Add(1)
	w.queue.push(root)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runWorker()
		}()
	}

	go func() {
		w.pending.Wait()
		w.queue.closeAll()
		wg.Wait()
		events <- Event{Kind: EventComplete, Stats: w.snapshotStats()}
		close(events)
	}()

	return events
}

type walk struct {
	recursive bool
	reader    LedgerReader
	events    chan Event
	queue     *dirQueue
	pending   sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

func (w *walk) runWorker() {
	for {
		dir, ok := w.queue.pop()
		if !ok {
			return
		}
		w.processDirectory(dir)
		w.pending.Done()
	}
}

func (w *walk) processDirectory(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.events <- Event{Kind: EventError, ErrPath: dir, ErrMsg: err.Error()}
		w.addErrors(1)
		return
	}

	w.events <- Event{Kind: EventDirectory, DirPath: dir}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if w.recursive {
				w.pending.Add(1)
				w.queue.push(path)
			}
			continue
		}

		if !isRecognizedVideo(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			w.events <- Event{Kind: EventError, ErrPath: path, ErrMsg: err.Error()}
			w.addErrors(1)
			continue
		}

		w.classifyAndEmit(dir, name, path, info.Size())
	}
}

func (w *walk) classifyAndEmit(dir, name, path string, size int64) {
	w.addFound(1)

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	targetPath := filepath.Join(dir, base+".mp3")
	subtitlePath := filepath.Join(dir, base+".srt")

	hasSubtitle := exists(subtitlePath)
	hasAudio := exists(targetPath)

	df := DiscoveredFile{
		Path:               path,
		Basename:           base,
		Extension:          ext,
		Directory:          dir,
		Size:               size,
		HasSiblingAudio:    hasAudio,
		HasSiblingSubtitle: hasSubtitle,
		TargetPath:         targetPath,
	}

	if hasSubtitle {
		df.ShouldSkip = true
		w.addSkippedSubtitle(1)
		w.events <- Event{Kind: EventSkipped, File: df, Reason: SkipSubtitle}
		return
	}

	if hasAudio {
		df.ShouldSkip = true
		w.addSkippedAudio(1)
		w.events <- Event{Kind: EventSkipped, File: df, Reason: SkipAudio}
		return
	}

	if _, err := w.reader.Get(path); err != nil {
		w.events <- Event{Kind: EventError, ErrPath: path, ErrMsg: err.Error()}
		w.addErrors(1)
		return
	}

	// No sibling audio yet, regardless of ledger state: a missing target
	// always means (re)conversion is needed (spec.md §4.C, Glossary
	// "Presence triggers skip").
	w.addToProcess(1)
	w.events <- Event{Kind: EventFile, File: df}
}

func isRecognizedVideo(name string) bool {
	ok, _ := doublestar.Match(recognizedExtensionGlob, strings.ToLower(name))
	return ok
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (w *walk) addFound(n int)           { w.mu.Lock(); w.stats.TotalFound += n; w.mu.Unlock() }
func (w *walk) addToProcess(n int)        { w.mu.Lock(); w.stats.ToProcess += n; w.mu.Unlock() }
func (w *walk) addSkippedAudio(n int)     { w.mu.Lock(); w.stats.SkippedAudio += n; w.mu.Unlock() }
func (w *walk) addSkippedSubtitle(n int)  { w.mu.Lock(); w.stats.SkippedSubtitle += n; w.mu.Unlock() }
func (w *walk) addErrors(n int)           { w.mu.Lock(); w.stats.Errors += n; w.mu.Unlock() }

func (w *walk) snapshotStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
