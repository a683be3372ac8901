// File: adapters/signal_adapter.go
// Author: momentics <momentics@gmail.com>
//
// SignalBridge is the process-signal trampoline the epoll, kqueue and IOCP
// adapters embed to satisfy the SignalRegister/SignalUnregister/SignalsCall leg of
// api.PlatformAdapter.

package adapters

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/momentics/taskloop/api"
)

type signalEntry struct {
	cb  api.Callback
	ctx any
}

// SignalBridge is embedded by pointer in concrete reactor adapters.
type SignalBridge struct {
	mu       sync.Mutex
	handlers map[int]signalEntry
	pending  map[int]bool
	notifyCh chan os.Signal
	wake     func()
	started  bool
}

// NewSignalBridge constructs a bridge whose deliveries call wake to force
// the owning adapter's Poll call to return promptly.
func NewSignalBridge(wake func()) *SignalBridge {
	return &SignalBridge{
		handlers: make(map[int]signalEntry),
		pending:  make(map[int]bool),
		notifyCh: make(chan os.Signal, 16),
		wake:     wake,
	}
}

// SignalRegister installs a trampoline for signo. Only one callback may be
// registered per signal number.
func (b *SignalBridge) SignalRegister(scheduler any, state any, signo int, cb api.Callback, ctx any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[signo]; exists {
		return api.ErrAlreadyExists
	}
	b.handlers[signo] = signalEntry{cb: cb, ctx: ctx}
	signal.Notify(b.notifyCh, syscall.Signal(signo))
	if !b.started {
		b.started = true
		go b.run()
	}
	return nil
}

// SignalUnregister removes the trampoline for signo.
func (b *SignalBridge) SignalUnregister(scheduler any, state any, signo int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[signo]; !exists {
		return api.ErrNotFound
	}
	delete(b.handlers, signo)
	delete(b.pending, signo)
	signal.Stop(b.notifyCh)
	for s := range b.handlers {
		signal.Notify(b.notifyCh, syscall.Signal(s))
	}
	return nil
}

// SignalsCall invokes the callback for every signal number delivered since
// the previous call, then clears the pending set. Not called under lock.
func (b *SignalBridge) SignalsCall(scheduler any, state any) {
	b.mu.Lock()
	fired := make([]signalEntry, 0, len(b.pending))
	for signo := range b.pending {
		if h, ok := b.handlers[signo]; ok {
			fired = append(fired, h)
		}
	}
	b.pending = make(map[int]bool)
	b.mu.Unlock()

	for _, h := range fired {
		h.cb(scheduler, nil, api.Interrupt, 0, h.ctx)
	}
}

// run is the OS-signal goroutine: it only flags pending state and wakes the
// poller, never touching registry state directly.
func (b *SignalBridge) run() {
	for sig := range b.notifyCh {
		if s, ok := sig.(syscall.Signal); ok {
			b.mu.Lock()
			b.pending[int(s)] = true
			b.mu.Unlock()
			if b.wake != nil {
				b.wake()
			}
		}
	}
}
