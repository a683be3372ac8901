// File: task.go
// Author: momentics <momentics@gmail.com>
//
// Task is the common representation backing all three task kinds. The registry is its sole owner: callers hold only the *Task pointer
// as an opaque handle, which stays addressable after invalidation (so
// further API calls on it report NotValid) but is never resurrected.

package taskloop

import (
	"sync/atomic"

	"github.com/momentics/taskloop/api"
)

// Task is shared storage for FdTask, TimeoutTask, and EventTask; unused
// fields for a given Kind are left zero. valid is accessed with atomic
// loads from outside the scheduler lock (invalidate-by-fd et al. always
// take the lock, but the dispatcher's hot-path validity recheck right
// before invoking a callback intentionally avoids re-taking it).
type Task struct {
	kind     api.Kind
	valid    atomic.Bool
	callback api.Callback
	context  any
	owner    *Scheduler

	// FdTask fields.
	fd            uint64
	requestedMask api.EventMask
	returnedMask  api.EventMask

	// TimeoutTask fields.
	deadlineSec  int64
	deadlineUsec int64
	next         *Task // singly-linked timeout queue

	// EventTask fields.
	name   string
	params []api.ParamKind
	subs   []*subscription
}

type subscription struct {
	callback api.EventCallback
	context  any
	origin   *Scheduler
}

// AllTasks is the sentinel handle Invalidate accepts to mean "every task
// owned by the scheduler".
var AllTasks = &Task{}

// Valid reports whether the task has not yet been invalidated. A Task
// returned from any add call starts valid; once false, it never becomes
// true again.
func (t *Task) Valid() bool {
	return t.valid.Load()
}

// Kind reports which of the three task classes t belongs to.
func (t *Task) Kind() api.Kind {
	return t.kind
}

func newTask(owner *Scheduler, kind api.Kind, cb api.Callback, ctx any) *Task {
	t := &Task{kind: kind, callback: cb, context: ctx, owner: owner}
	t.valid.Store(true)
	return t
}
