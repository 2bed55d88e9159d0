package pool

import "time"

// action is what nextActionLocked decided the pool should do next, handed
// back to schedule so the actual side effect (spawning a goroutine, killing
// children, emitting the summary) runs outside the mutex.
type action int

const (
	actionNone action = iota
	actionWait
	actionStart
	actionImmediateKill
	actionComplete
)

// schedule runs spec.md §4.D's steady-state loop to a fixed point: start as
// many jobs as capacity allows, or execute the shutdown/completion step,
// repeating until there is nothing left to do this round.
func (p *Pool) schedule() {
	for {
		act, job := p.nextActionLocked()
		switch act {
		case actionNone, actionWait:
			return
		case actionComplete:
			p.finish()
			return
		case actionImmediateKill:
			p.deps.KillAll(true)
			continue
		case actionStart:
			go p.runJob(job)
			continue
		}
	}
}

// nextActionLocked evaluates spec.md §4.D's scheduling algorithm and
// performs whatever bookkeeping can happen under the mutex, returning the
// side effect the caller must still perform unlocked.
func (p *Pool) nextActionLocked() (action, *Job) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return actionWait, nil
	}

	if len(p.pending) == 0 && len(p.active) == 0 {
		if p.completed {
			return actionNone, nil
		}
		if p.scanComplete || p.shuttingDown {
			p.completed = true
			return actionComplete, nil
		}
		return actionWait, nil
	}

	if p.shuttingDown {
		if p.immediate && len(p.active) > 0 {
			n := len(p.active)
			for id, job := range p.active {
				job.State = StateCancelled
				job.EndTime = time.Now()
				delete(p.active, id)
			}
			p.counters.Cancelled += n
			return actionImmediateKill, nil
		}
		// Graceful drain: pending is already empty (dropped at shutdown
		// request time, and Add queues nothing afterwards); let active jobs
		// finish on their own.
		return actionWait, nil
	}

	if p.paused {
		return actionWait, nil
	}

	if len(p.active) < p.concurrency && len(p.pending) > 0 {
		job := p.pending[0]
		p.pending = p.pending[1:]
		job.State = StateRunning
		job.StartTime = time.Now()
		p.active[job.ID] = job
		return actionStart, job
	}

	return actionWait, nil
}

// finish computes and emits the terminal summary exactly once. Called
// outside the mutex; nextActionLocked's completed guard ensures this only
// ever runs for one caller.
func (p *Pool) finish() {
	p.mu.Lock()
	summary := Summary{
		TotalAdded:       p.counters.TotalAdded,
		Completed:        p.counters.Completed,
		Failed:           p.counters.Failed,
		Cancelled:        p.counters.Cancelled,
		TotalOutputBytes: p.counters.TotalOutputBytes,
		TotalTime:        time.Since(p.startedAt),
	}
	p.mu.Unlock()

	p.deps.Observer.OnQueueComplete(summary)
	p.future.ch <- summary
	close(p.future.ch)
}
