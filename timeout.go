// File: timeout.go
// Author: momentics <momentics@gmail.com>
//
// The timeout priority queue: a singly-linked list ordered by
// absolute deadline, the dispatch-timeouts sweep, and the freelist's
// self-rescheduling garbage collector.

package taskloop

import (
	"time"

	"github.com/momentics/taskloop/api"
	"github.com/momentics/taskloop/control"
)

const microsPerSecond = int64(1_000_000)

// clockFunc returns the scheduler's monotonic clock as (seconds,
// microseconds-since-epoch-of-seconds). Tests substitute a deterministic
// clock via WithClock.
type clockFunc func() (sec, usec int64)

// clockEpoch anchors the default clock. time.Since reads Go's monotonic
// clock reading, so wall-clock jumps do not move deadlines.
var clockEpoch = time.Now()

func monotonicClock() (int64, int64) {
	d := time.Since(clockEpoch)
	return int64(d / time.Second), int64(d%time.Second) / int64(time.Microsecond)
}

// WithClock overrides the scheduler's time source; used by tests to drive
// deadlines deterministically instead of the real clock.
func WithClock(fn func() (sec, usec int64)) Option {
	return func(s *Scheduler) { s.clock = fn }
}

// AddTimeout registers a one-shot deadline. A
// delay of (0,0) is legal and fires on the very next iteration.
func (s *Scheduler) AddTimeout(cb api.Callback, ctx any, seconds, micros int64) *Task {
	nowSec, nowUsec := s.clockOrDefault()
	deadSec, deadUsec := addNormalized(nowSec, nowUsec, seconds, micros)

	t := s.freelist.Get()
	*t = Task{kind: api.KindTimeout, callback: cb, context: ctx, owner: s, deadlineSec: deadSec, deadlineUsec: deadUsec}
	t.valid.Store(true)

	s.mu.Lock()
	s.insertTimeoutLocked(t)
	s.fireNotify(api.Notification{Added: true, Task: t, Seconds: deadSec, Micros: deadUsec})
	s.mu.Unlock()
	return t
}

// insertTimeoutLocked inserts t in sorted order, halting at the first
// strictly-greater deadline so ties keep FIFO order.
func (s *Scheduler) insertTimeoutLocked(t *Task) {
	if s.timeoutHead == nil || deadlineLess(t, s.timeoutHead) {
		t.next = s.timeoutHead
		s.timeoutHead = t
		return
	}
	prev := s.timeoutHead
	for prev.next != nil && !deadlineLess(t, prev.next) {
		prev = prev.next
	}
	t.next = prev.next
	prev.next = t
}

func deadlineLess(a, b *Task) bool {
	if a.deadlineSec != b.deadlineSec {
		return a.deadlineSec < b.deadlineSec
	}
	return a.deadlineUsec < b.deadlineUsec
}

// nextDeadline peeks the timeout queue head, evicting invalid leading
// entries and dispatching already-expired ones inline.
// It returns the iteration's poll timeout in microseconds and whether a
// deadline exists at all.
func (s *Scheduler) nextDeadline() (waitMicros int64, hasDeadline bool) {
	for {
		s.mu.Lock()
		h := s.timeoutHead
		for h != nil && !h.Valid() {
			s.timeoutHead = h.next
			freed := h
			h = h.next
			freed.next = nil
			s.mu.Unlock()
			s.freelist.Put(freed)
			s.mu.Lock()
		}
		if h == nil {
			s.mu.Unlock()
			return 0, false
		}
		nowSec, nowUsec := s.clockOrDefault()
		past := deadlineReached(h, nowSec, nowUsec)
		s.mu.Unlock()
		if past {
			s.dispatchTimeouts(false)
			continue
		}
		wait := deadlineWaitMicros(h, nowSec, nowUsec)
		return wait, true
	}
}

func deadlineReached(t *Task, nowSec, nowUsec int64) bool {
	if t.deadlineSec != nowSec {
		return t.deadlineSec < nowSec
	}
	return t.deadlineUsec <= nowUsec
}

func deadlineWaitMicros(t *Task, nowSec, nowUsec int64) int64 {
	wait := (t.deadlineSec-nowSec)*microsPerSecond + (t.deadlineUsec - nowUsec)
	if wait < 0 {
		wait = 0
	}
	return wait
}

// dispatchTimeouts fires due timers. With
// all=false it stops at the first non-expired entry; with all=true it
// fires entries without checking their deadlines (used only by Uninit). At
// most timerBatchLimit() callbacks run per call, so a longer queue is not
// fully drained by one call.
func (s *Scheduler) dispatchTimeouts(all bool) int {
	fired := 0
	limit := s.timerBatchLimit()
	for {
		s.mu.Lock()
		h := s.timeoutHead
		if h == nil {
			s.mu.Unlock()
			return fired
		}
		if !h.Valid() {
			s.timeoutHead = h.next
			h.next = nil
			s.mu.Unlock()
			s.freelist.Put(h)
			continue
		}
		nowSec, nowUsec := s.clockOrDefault()
		if !all && !deadlineReached(h, nowSec, nowUsec) {
			s.mu.Unlock()
			return fired
		}
		h.valid.Store(false)
		cb, ctx := h.callback, h.context
		s.fireNotify(api.Notification{Added: false, Task: h, Seconds: h.deadlineSec, Micros: h.deadlineUsec})
		s.mu.Unlock()

		cb(s, s.appContext, api.Expire, 0, ctx)

		s.mu.Lock()
		if s.timeoutHead == h {
			s.timeoutHead = h.next
		}
		h.next = nil
		s.mu.Unlock()
		s.freelist.Put(h)

		fired++
		if fired >= limit {
			return fired
		}
	}
}

func (s *Scheduler) clockOrDefault() (int64, int64) {
	if s.clock != nil {
		return s.clock()
	}
	return monotonicClock()
}

func (s *Scheduler) timerBatchLimit() int {
	if v, ok := s.tunables.GetSnapshot()[control.KeyTimerBatchLimit]; ok {
		if n, ok := v.(int); ok && n > 0 {
			return n
		}
	}
	return 40
}

func (s *Scheduler) opportunisticThresholdMicros() int64 {
	if v, ok := s.tunables.GetSnapshot()[control.KeyOpportunisticMicros]; ok {
		if n, ok := v.(int); ok && n > 0 {
			return int64(n)
		}
	}
	return 50_000
}

// startFreelistGC schedules the self-rescheduling freelist compaction
// timer: each firing trims the
// freelist toward its floor, then re-adds itself for the configured trim
// period.
func (s *Scheduler) startFreelistGC() {
	var gc api.Callback
	gc = func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		s.mu.Lock()
		live := 0
		for t := s.timeoutHead; t != nil; t = t.next {
			live++
		}
		s.mu.Unlock()

		floor, period := s.freelistTunables()
		dropped := s.freelist.Trim(floor, live)
		if dropped > 0 {
			s.metrics.Set("scheduler.freelist_trimmed", dropped)
		}
		s.AddTimeout(gc, nil, period, 0)
	}
	_, period := s.freelistTunables()
	s.AddTimeout(gc, nil, period, 0)
}

func (s *Scheduler) freelistTunables() (floor int, periodSeconds int64) {
	floor, periodSeconds = 10, 3600
	snap := s.tunables.GetSnapshot()
	if v, ok := snap[control.KeyFreelistCap]; ok {
		if n, ok := v.(int); ok {
			floor = n
		}
	}
	if v, ok := snap[control.KeyFreelistTrimInterval]; ok {
		if n, ok := v.(int); ok {
			periodSeconds = int64(n)
		}
	}
	return floor, periodSeconds
}

// PendingTimeouts reports how many timeout tasks are currently queued,
// valid or not; introspection for tests and Control.Stats()-style probes.
func (s *Scheduler) PendingTimeouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for t := s.timeoutHead; t != nil; t = t.next {
		n++
	}
	return n
}

// addNormalized adds (deltaSec, deltaUsec) to (sec, usec) and renormalises
// so the microseconds component stays in [0, 10^6).
func addNormalized(sec, usec, deltaSec, deltaUsec int64) (int64, int64) {
	sec += deltaSec
	usec += deltaUsec
	for usec >= microsPerSecond {
		usec -= microsPerSecond
		sec++
	}
	for usec < 0 {
		usec += microsPerSecond
		sec--
	}
	return sec, usec
}
