// File: signal.go
// Author: momentics <momentics@gmail.com>
//
// AddSignal and RemoveSignal delegate process-signal registration to the
// platform adapter's SignalBridge.

package taskloop

import "github.com/momentics/taskloop/api"

// AddSignal installs cb as the handler for signo.
// The adapter's trampoline only flags delivery and wakes the dispatch
// thread; SignalsCall, invoked once per iteration from RunOnce, is what
// actually runs cb.
func (s *Scheduler) AddSignal(signo int, cb api.Callback, ctx any) error {
	return s.adapter.SignalRegister(s, s.adapterState, signo, cb, ctx)
}

// RemoveSignal uninstalls the handler registered for signo.
func (s *Scheduler) RemoveSignal(signo int) error {
	return s.adapter.SignalUnregister(s, s.adapterState, signo)
}
