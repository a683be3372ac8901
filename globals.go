// File: globals.go
// Author: momentics <momentics@gmail.com>
//
// Go has no TLS and no stable goroutine identity to key a per-thread
// "current scheduler" slot on, so this carries it explicitly through
// context.Context instead of an implicit global, the idiomatic Go shape
// for an ambient, call-scoped value.

package taskloop

import "context"

type globalKey struct{}

// WithGlobal returns a context carrying s as the current scheduler for
// any call that receives it, mirroring set_global's effect without a
// process-wide or thread-wide mutable slot.
func WithGlobal(ctx context.Context, s *Scheduler) context.Context {
	return context.WithValue(ctx, globalKey{}, s)
}

// GlobalFromContext returns the scheduler WithGlobal attached to ctx, or
// nil if none was set.
func GlobalFromContext(ctx context.Context) *Scheduler {
	s, _ := ctx.Value(globalKey{}).(*Scheduler)
	return s
}
