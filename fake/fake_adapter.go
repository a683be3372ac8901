// File: fake/fake_adapter.go
// Author: momentics <momentics@gmail.com>
//
// FakeAdapter is a scripted api.PlatformAdapter: tests enqueue the
// api.PollResult values they want successive Poll calls to return, instead
// of touching a real epoll/kqueue/IOCP backend.

package fake

import (
	"sync"
	"time"

	"github.com/momentics/taskloop/api"
)

type signalHandler struct {
	cb  api.Callback
	ctx any
}

// FakeAdapter implements api.PlatformAdapter for unit tests.
type FakeAdapter struct {
	mu      sync.Mutex
	armed   map[uint64]api.EventMask
	queue   []api.PollResult
	woken   chan struct{}
	signals map[int]signalHandler
	pending map[int]bool
}

// NewFakeAdapter constructs an idle FakeAdapter.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		armed:   make(map[uint64]api.EventMask),
		woken:   make(chan struct{}, 1),
		signals: make(map[int]signalHandler),
		pending: make(map[int]bool),
	}
}

// EnqueueResult schedules r to be returned by the next Poll call that
// doesn't find the result queue empty.
func (f *FakeAdapter) EnqueueResult(r api.PollResult) {
	f.mu.Lock()
	f.queue = append(f.queue, r)
	f.mu.Unlock()
}

// ArmedMask reports the mask last armed for fd.
func (f *FakeAdapter) ArmedMask(fd uint64) (api.EventMask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.armed[fd]
	return m, ok
}

// RaiseSignal marks signo delivered; the next SignalsCall will invoke its
// registered callback, simulating an OS signal trampoline firing.
func (f *FakeAdapter) RaiseSignal(signo int) {
	f.mu.Lock()
	f.pending[signo] = true
	f.mu.Unlock()
}

func (f *FakeAdapter) Init(scheduler any, appContext any) (any, error) {
	return f, nil
}

func (f *FakeAdapter) Uninit(scheduler any, state any) {}

func (f *FakeAdapter) ArmFD(scheduler any, state any, fd uint64, mask api.EventMask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mask == 0 {
		delete(f.armed, fd)
		return nil
	}
	f.armed[fd] = mask
	return nil
}

func (f *FakeAdapter) Poll(scheduler any, state any, timeoutMicros int64) (api.PollResult, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		r := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return r, nil
	}
	f.mu.Unlock()

	switch {
	case timeoutMicros == 0:
		return api.PollResult{Status: api.PollTimeout}, nil
	case timeoutMicros < 0:
		<-f.woken
		return api.PollResult{Status: api.PollInterrupted}, nil
	default:
		select {
		case <-f.woken:
			return api.PollResult{Status: api.PollInterrupted}, nil
		case <-time.After(time.Duration(timeoutMicros) * time.Microsecond):
			return api.PollResult{Status: api.PollTimeout}, nil
		}
	}
}

func (f *FakeAdapter) Wake(scheduler any, state any) error {
	select {
	case f.woken <- struct{}{}:
	default:
	}
	return nil
}

func (f *FakeAdapter) SignalRegister(scheduler any, state any, signo int, cb api.Callback, ctx any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals[signo] = signalHandler{cb: cb, ctx: ctx}
	return nil
}

func (f *FakeAdapter) SignalUnregister(scheduler any, state any, signo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.signals, signo)
	delete(f.pending, signo)
	return nil
}

func (f *FakeAdapter) SignalsCall(scheduler any, state any) {
	f.mu.Lock()
	fired := make([]signalHandler, 0, len(f.pending))
	for signo := range f.pending {
		if h, ok := f.signals[signo]; ok {
			fired = append(fired, h)
		}
	}
	f.pending = make(map[int]bool)
	f.mu.Unlock()

	for _, h := range fired {
		h.cb(nil, nil, api.Interrupt, 0, h.ctx)
	}
}

var _ api.PlatformAdapter = (*FakeAdapter)(nil)
