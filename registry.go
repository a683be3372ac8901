// File: registry.go
// Author: momentics <momentics@gmail.com>
//
// The task registry: add/invalidate/remove for fd and timeout
// tasks, plus the selectors invalidate-by-* use to scan the relevant
// containers under the lock. Event registry operations (declare, connect,
// disconnect) live in event.go since they have root-forwarding rules the
// fd/timeout paths don't.

package taskloop

import (
	"reflect"

	"github.com/momentics/taskloop/api"
)

// AddFD registers callback for readiness on fd.
//
// If fd is already present and valid, the existing handle is returned
// unchanged and mask stays whatever it was. If fd is present but invalid, the stale
// entry is evicted first and a fresh task is armed with mask Read. A
// configured max_tasks ceiling is enforced before allocating a new task;
// if arming the poller fails, the insert is rolled back.
func (s *Scheduler) AddFD(fd uint64, cb api.Callback, ctx any) (*Task, error) {
	s.mu.Lock()
	if existing, ok := s.fdTasks[fd]; ok {
		if existing.Valid() {
			s.mu.Unlock()
			return existing, nil
		}
		delete(s.fdTasks, fd)
	}
	if s.maxTasks > 0 && len(s.fdTasks) >= s.maxTasks {
		s.mu.Unlock()
		return nil, api.ErrLimit
	}

	t := newTask(s, api.KindFd, cb, ctx)
	t.fd = fd
	t.requestedMask = api.Read
	s.fdTasks[fd] = t
	s.mu.Unlock()

	if err := s.adapter.ArmFD(s, s.adapterState, fd, api.Read); err != nil {
		s.mu.Lock()
		delete(s.fdTasks, fd)
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.fireNotify(api.Notification{Added: true, Task: t, IsFd: true, Fd: fd, Mask: api.Read})
	s.mu.Unlock()
	s.metrics.Set("scheduler.fd_tasks", len(s.fdTasks))
	return t, nil
}

// SetListenMask re-arms fd for mask. If
// sendEvents is true and mask is non-zero, it synthesises an immediate
// dispatch as if the poller had just observed mask ready.
func (s *Scheduler) SetListenMask(fd uint64, mask api.EventMask, sendEvents bool) error {
	s.mu.Lock()
	t, ok := s.fdTasks[fd]
	if !ok || !t.Valid() {
		s.mu.Unlock()
		return api.ErrNotFound
	}
	if err := s.adapter.ArmFD(s, s.adapterState, fd, mask); err != nil {
		s.mu.Unlock()
		return err
	}
	t.requestedMask = mask
	s.fireNotify(api.Notification{Added: true, Task: t, IsFd: true, Fd: fd, Mask: mask})
	s.mu.Unlock()

	if sendEvents && mask != 0 {
		t.returnedMask = mask
		s.dispatchFds([]*Task{t})
	}
	return nil
}

// GetListenMask returns the requested mask for fd, or 0 if absent.
func (s *Scheduler) GetListenMask(fd uint64) api.EventMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.fdTasks[fd]
	if !ok {
		return 0
	}
	return t.requestedMask
}

// UnsetListen disarms fd without removing its task from the registry,
// returning false silently if fd is not registered rather than a
// distinct error code for the unknown-fd case.
func (s *Scheduler) UnsetListen(fd uint64) bool {
	s.mu.Lock()
	t, ok := s.fdTasks[fd]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if err := s.adapter.ArmFD(s, s.adapterState, fd, 0); err != nil {
		return false
	}
	s.mu.Lock()
	t.requestedMask = 0
	s.mu.Unlock()
	return true
}

// Invalidate marks t invalid. It never frees and
// never runs a callback. Passing AllTasks invalidates every task owned by
// the scheduler, notify-observer included for each one.
// Invalidating an event task schedules its deferred removal on the root
// scheduler's event map instead of unlinking it immediately.
func (s *Scheduler) Invalidate(t *Task) error {
	if t == AllTasks {
		s.RemoveAll()
		return nil
	}
	if t == nil {
		return api.ErrInvalidArgument
	}
	if !t.valid.CompareAndSwap(true, false) {
		return nil
	}

	s.mu.Lock()
	s.fireNotify(api.Notification{Added: false, Task: t, IsFd: t.kind == api.KindFd, Fd: t.fd, Mask: t.requestedMask})
	s.mu.Unlock()

	if t.kind == api.KindEvent {
		s.scheduleEventDeletion(t)
	}
	return nil
}

// InvalidateByFd invalidates the fd task registered for fd, if any.
func (s *Scheduler) InvalidateByFd(fd uint64) {
	s.mu.Lock()
	t, ok := s.fdTasks[fd]
	s.mu.Unlock()
	if ok {
		s.Invalidate(t)
	}
}

// InvalidateByCallback invalidates every task in this scheduler's fd and
// timeout containers whose callback matches fn by identity.
func (s *Scheduler) InvalidateByCallback(fn api.Callback) {
	s.invalidateWhere(func(t *Task) bool { return sameCallback(t.callback, fn) })
}

// InvalidateByContext invalidates every task whose opaque context equals
// ctx. ctx must be a comparable value; incomparable contexts never match.
func (s *Scheduler) InvalidateByContext(ctx any) {
	s.invalidateWhere(func(t *Task) bool { return contextEquals(t.context, ctx) })
}

// InvalidateByAll invalidates tasks matching every non-zero/non-nil
// criterion supplied: fd (skip check if 0), fn (skip if nil), ctx (skip if
// nil).
func (s *Scheduler) InvalidateByAll(fd uint64, fn api.Callback, ctx any) {
	s.invalidateWhere(func(t *Task) bool {
		if fd != 0 && t.fd != fd {
			return false
		}
		if fn != nil && !sameCallback(t.callback, fn) {
			return false
		}
		if ctx != nil && !contextEquals(t.context, ctx) {
			return false
		}
		return true
	})
}

func (s *Scheduler) invalidateWhere(match func(*Task) bool) {
	s.mu.Lock()
	var hits []*Task
	for _, t := range s.fdTasks {
		if t.Valid() && match(t) {
			hits = append(hits, t)
		}
	}
	for t := s.timeoutHead; t != nil; t = t.next {
		if t.Valid() && match(t) {
			hits = append(hits, t)
		}
	}
	s.mu.Unlock()

	for _, t := range hits {
		s.Invalidate(t)
	}
}

// RemoveAll bulk-invalidates and immediately reaps every task the
// scheduler owns). Used during teardown; also
// exposed for callers who need a hard reset without a full Uninit.
func (s *Scheduler) RemoveAll() {
	s.invalidateAllLocked()
	s.reapAll()
}

func (s *Scheduler) invalidateAllLocked() {
	s.mu.Lock()
	var all []*Task
	for _, t := range s.fdTasks {
		all = append(all, t)
	}
	for t := s.timeoutHead; t != nil; t = t.next {
		all = append(all, t)
	}
	if s.events != nil {
		for _, t := range s.events {
			all = append(all, t)
		}
	}
	s.mu.Unlock()

	for _, t := range all {
		s.Invalidate(t)
	}
}

// reapAll frees every invalid fd task and unlinks every invalid entry from
// the timeout queue; used by Uninit and RemoveAll, never mid-dispatch.
func (s *Scheduler) reapAll() {
	s.mu.Lock()
	for fd, t := range s.fdTasks {
		if !t.Valid() {
			delete(s.fdTasks, fd)
		}
	}
	var prev *Task
	for t := s.timeoutHead; t != nil; {
		next := t.next
		if t.Valid() {
			prev = t
		} else {
			if prev == nil {
				s.timeoutHead = next
			} else {
				prev.next = next
			}
			t.next = nil
			s.freelist.Put(t)
		}
		t = next
	}
	s.mu.Unlock()
}

func sameCallback(a, b api.Callback) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func contextEquals(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
