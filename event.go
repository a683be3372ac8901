// File: event.go
// Author: momentics <momentics@gmail.com>
//
// The event bus: named publish/subscribe slots stored
// exclusively on the root scheduler. Every operation that's called on a
// child forwards to root() first.

package taskloop

import (
	"reflect"

	"github.com/eapache/queue"

	"github.com/momentics/taskloop/api"
)

// Declare creates a named event on the root scheduler. params is advisory
// metadata only; the core never validates Signal's arguments against it.
// Double-declaration (an existing valid task by that name) fails.
func (s *Scheduler) Declare(name string, params ...api.ParamKind) (*Task, error) {
	r := s.root()
	r.mu.Lock()
	if existing, ok := r.events[name]; ok && existing.Valid() {
		r.mu.Unlock()
		return nil, api.ErrAlreadyExists
	}
	t := newTask(r, api.KindEvent, nil, nil)
	t.name = name
	t.params = append([]api.ParamKind(nil), params...)
	r.events[name] = t
	r.fireNotify(api.Notification{Added: true, Task: t})
	r.mu.Unlock()
	return t, nil
}

// EventSignatures reports the advisory parameter shape of every currently
// valid event declared on the root scheduler, keyed by name. A
// ControlAdapter wired via WithControl exposes this through its
// "scheduler.events" debug probe.
func (s *Scheduler) EventSignatures() map[string][]api.ParamKind {
	r := s.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]api.ParamKind, len(r.events))
	for name, t := range r.events {
		if t.Valid() {
			out[name] = append([]api.ParamKind(nil), t.params...)
		}
	}
	return out
}

// AddEvent is Declare under the name that matches the rest of the public
// task-op family (AddFD, AddTimeout, AddSignal, AddEvent).
func (s *Scheduler) AddEvent(name string, params ...api.ParamKind) (*Task, error) {
	return s.Declare(name, params...)
}

// resolveEvent accepts either an event name (string) or a *Task handle
// and returns the live EventTask it names.
func (s *Scheduler) resolveEvent(nameOrTask any) (*Task, error) {
	r := s.root()
	switch v := nameOrTask.(type) {
	case string:
		r.mu.Lock()
		t, ok := r.events[v]
		r.mu.Unlock()
		if !ok {
			return nil, api.ErrNotFound
		}
		if !t.Valid() {
			return nil, api.ErrNotValid
		}
		return t, nil
	case *Task:
		if v.kind != api.KindEvent {
			return nil, api.ErrInvalidArgument
		}
		if !v.Valid() {
			return nil, api.ErrNotValid
		}
		return v, nil
	default:
		return nil, api.ErrInvalidArgument
	}
}

// Connect appends a Subscription to the named event.
// Duplicate (callback, context) pairs are rejected.
func (s *Scheduler) Connect(nameOrTask any, cb api.EventCallback, ctx any) error {
	t, err := s.resolveEvent(nameOrTask)
	if err != nil {
		return err
	}
	r := s.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range t.subs {
		if sameEventCallback(sub.callback, cb) && contextEquals(sub.context, ctx) {
			return api.ErrAlreadyExists
		}
	}
	t.subs = append(t.subs, &subscription{callback: cb, context: ctx, origin: s})
	r.fireNotify(api.Notification{Added: true, Task: t})
	return nil
}

// Disconnect removes the Subscription matching (callback, context) from
// the named event. Fails if not found.
func (s *Scheduler) Disconnect(nameOrTask any, cb api.EventCallback, ctx any) error {
	t, err := s.resolveEvent(nameOrTask)
	if err != nil {
		return err
	}
	r := s.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range t.subs {
		if sameEventCallback(sub.callback, cb) && contextEquals(sub.context, ctx) {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			r.fireNotify(api.Notification{Added: false, Task: t})
			return nil
		}
	}
	return api.ErrNotFound
}

// Signal fans an event out to its subscribers in insertion order. It stops early if a subscriber vetoes
// (returns false) or if the event task is invalidated mid-iteration.
func (s *Scheduler) Signal(nameOrTask any, args ...any) error {
	t, err := s.resolveEvent(nameOrTask)
	if err != nil {
		return err
	}
	r := s.root()

	r.mu.Lock()
	subs := append([]*subscription(nil), t.subs...)
	r.mu.Unlock()

	callArgs := append([]any(nil), args...)
	for _, sub := range subs {
		if !t.Valid() {
			break
		}
		cont := sub.callback(sub.origin, sub.origin.appContext, t, sub.context, append([]any(nil), callArgs...))
		if !cont {
			break
		}
	}
	return nil
}

// Delete invalidates the named event and defers its actual removal to a
// zero-delay timer on the root so an in-flight Signal on another thread
// can finish safely.
func (s *Scheduler) Delete(nameOrTask any) error {
	t, err := s.resolveEvent(nameOrTask)
	if err != nil {
		return err
	}
	return s.Invalidate(t)
}

// scheduleEventDeletion is invoked from Invalidate for event tasks: it
// adds the zero-delay cleanup timer that unlinks the event from the root's
// name map and frees its Subscriptions.
func (s *Scheduler) scheduleEventDeletion(t *Task) {
	r := s.root()
	r.AddTimeout(func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		r.mu.Lock()
		if cur, ok := r.events[t.name]; ok && cur == t {
			delete(r.events, t.name)
		}
		subs := t.subs
		t.subs = nil
		r.mu.Unlock()

		// Detach subscribers one at a time, notifying each subscription's
		// origin scheduler that it lost the connection, so an origin with
		// no other subscriptions to this event can prune its own state.
		q := queue.New()
		for _, sub := range subs {
			q.Add(sub)
		}
		for q.Length() > 0 {
			sub := q.Remove().(*subscription)
			if sub.origin != nil {
				sub.origin.fireNotify(api.Notification{Added: false, Task: t})
			}
		}
	}, nil, 0, 0)
}

func sameEventCallback(a, b api.EventCallback) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
