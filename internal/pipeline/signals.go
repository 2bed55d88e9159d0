package pipeline

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// gracePeriod bounds how long the process waits to exit on a signal
// received before any pool exists (spec.md §6: "if no pool exists, exit
// after a short grace delay").
const gracePeriod = 2 * time.Second

// SignalWatcher implements spec.md §6's two-level control-signal protocol:
// the first SIGINT/SIGTERM requests a graceful shutdown, the second
// requests an immediate one. Handlers are swapped in for the lifetime of a
// live pipeline run and reset to the exit-on-timeout default otherwise.
type SignalWatcher struct {
	mu        sync.Mutex
	graceful  func()
	immediate func()
	level     int

	sigCh chan os.Signal
}

// NewSignalWatcher installs the process-wide signal handler. Call once per
// process.
func NewSignalWatcher() *SignalWatcher {
	w := &SignalWatcher{sigCh: make(chan os.Signal, 2)}
	signal.Notify(w.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go w.loop()
	return w
}

func (w *SignalWatcher) loop() {
	for range w.sigCh {
		w.mu.Lock()
		w.level++
		level := w.level
		graceful := w.graceful
		immediate := w.immediate
		w.mu.Unlock()

		switch level {
		case 1:
			log.Println("[pipeline] interrupt received: requesting graceful shutdown (interrupt again to force immediate)")
			if graceful != nil {
				graceful()
			} else {
				go exitAfterGrace()
			}
		case 2:
			log.Println("[pipeline] second interrupt received: forcing immediate shutdown")
			if immediate != nil {
				immediate()
			} else {
				os.Exit(1)
			}
		default:
			// Further signals during an already-immediate shutdown are a no-op.
		}
	}
}

// SetHandlers installs the callbacks invoked on the first and second
// signal, for the duration of one live pipeline run.
func (w *SignalWatcher) SetHandlers(graceful, immediate func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.graceful = graceful
	w.immediate = immediate
}

// Reset clears the handlers, reverting to the exit-on-timeout default for
// any signal received outside a live run (e.g. during preflight).
func (w *SignalWatcher) Reset() {
	w.SetHandlers(nil, nil)
}

func exitAfterGrace() {
	time.Sleep(gracePeriod)
	os.Exit(1)
}
