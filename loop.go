// File: loop.go
// Author: momentics <momentics@gmail.com>
//
// The run loop and one-iteration dispatcher. Data flows one
// direction per iteration: registrations land in the registry from any
// thread, the dispatcher (the owning thread) drains them, user callbacks
// run unlocked.

package taskloop

import (
	"runtime"

	"github.com/eapache/queue"

	"github.com/momentics/taskloop/api"
)

// RunResult is the outcome of RunOnce.
type RunResult int

const (
	RunRan RunResult = iota
	RunStopped
)

// Run iterates until the scheduler is stopped. If WithAffinity configured a
// CPU, the dispatch goroutine's OS thread is locked and pinned for the
// duration of the loop and released on return.
func (s *Scheduler) Run() {
	if s.affinity != nil {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := s.affinity.Pin(s.affinityCPU); err != nil {
			s.logf("affinity: pin to cpu %d failed: %v", s.affinityCPU, err)
		} else {
			defer s.affinity.Unpin()
		}
	}
	for {
		if res, _ := s.RunOnce(-1); res == RunStopped {
			return
		}
	}
}

// RunOnce performs exactly one iteration.
// timeoutMicros bounds the poller sleep: -1 computes the bound from the
// timeout queue, 0 returns after servicing whatever is already ready
// without blocking.
func (s *Scheduler) RunOnce(timeoutMicros int64) (RunResult, error) {
	// Step 1: signal drain. The adapter's SignalBridge tracks its own
	// pending set internally and no-ops when empty, so the core doesn't
	// need a separate signal-delivery flag to gate this call.
	s.adapter.SignalsCall(s, s.adapterState)

	// Step 2: validity check.
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return RunStopped, nil
	}

	// Step 3: next-deadline calculation. nextDeadline also evicts any
	// leading invalid entries and dispatches already-expired ones inline,
	// regardless of what timeout the caller requested.
	queueWait, hasDeadline := s.nextDeadline()

	iterationTimeout := timeoutMicros
	switch {
	case timeoutMicros < 0:
		// run-forever / "compute from the queue": use the queue's wait,
		// or block indefinitely if there is no pending timer.
		if hasDeadline {
			iterationTimeout = queueWait
		} else {
			iterationTimeout = -1
		}
	case timeoutMicros > 0 && hasDeadline && queueWait < timeoutMicros:
		// Caller gave an explicit upper bound, but an earlier timer
		// deadline caps it further.
		iterationTimeout = queueWait
	}

	// Step 4: poll.
	result, err := s.adapter.Poll(s, s.adapterState, iterationTimeout)
	if err != nil {
		s.logf("poll error: %v", err)
		return RunRan, nil
	}

	switch result.Status {
	case api.PollStopped:
		return RunStopped, nil
	case api.PollInterrupted, api.PollTimeout:
		// fall through to timer dispatch below
	case api.PollReady:
		s.dispatchReady(result.Ready)
	}

	// Step 6: dispatch timers.
	s.dispatchTimeouts(false)
	if iterationTimeout >= 0 && iterationTimeout < s.opportunisticThresholdMicros() {
		s.dispatchTimeouts(false)
	}

	return RunRan, nil
}

// dispatchReady resolves ready fds against the registry, queues the
// matching tasks in FIFO order, and dequeues them one at a time so each
// task's callback runs before the next one is even pulled off the queue.
func (s *Scheduler) dispatchReady(ready []api.ReadyFd) {
	q := queue.New()
	s.mu.Lock()
	for _, r := range ready {
		if t, ok := s.fdTasks[r.Fd]; ok && t.Valid() {
			t.returnedMask = r.Mask
			q.Add(t)
		}
	}
	s.mu.Unlock()

	dispatched := make([]*Task, 0, q.Length())
	for q.Length() > 0 {
		t := q.Remove().(*Task)
		dispatched = append(dispatched, t)
		s.dispatchOne(t)
	}
	s.sweepInvalid(dispatched)
}

// dispatchFds runs the read-then-write callback pair for each task in list
// and sweeps invalidated entries out of the registry afterward. Used by
// SetListenMask's synchronous send_events path, which has at most one
// task and so has no ordering to preserve across a queue.
func (s *Scheduler) dispatchFds(list []*Task) {
	for _, t := range list {
		s.dispatchOne(t)
	}
	s.sweepInvalid(list)
}

// dispatchOne runs the read-then-write callback pair for a single task,
// rechecking validity before each call since the read callback may itself
// invalidate the task.
func (s *Scheduler) dispatchOne(t *Task) {
	if t.Valid() && t.returnedMask&api.Read != 0 {
		t.callback(s, s.appContext, api.Read, t.fd, t.context)
	}
	if t.Valid() && t.returnedMask&api.Write != 0 {
		t.callback(s, s.appContext, api.Write, t.fd, t.context)
	}
}

// sweepInvalid removes any task in list that was invalidated during
// dispatch from the fd registry, provided the map still points at that
// exact task.
func (s *Scheduler) sweepInvalid(list []*Task) {
	s.mu.Lock()
	for _, t := range list {
		if !t.Valid() {
			if cur, ok := s.fdTasks[t.fd]; ok && cur == t {
				delete(s.fdTasks, t.fd)
			}
		}
	}
	s.mu.Unlock()
}
