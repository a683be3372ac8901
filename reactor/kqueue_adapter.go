//go:build darwin || freebsd || netbsd || openbsd

// File: reactor/kqueue_adapter.go
// Author: momentics <momentics@gmail.com>
//
// BSD/Darwin kqueue(2) backend for the scheduler's api.PlatformAdapter,
// built on the same self-pipe wakeup pattern as epoll_adapter.go so
// non-Linux Unix platforms get a native poller instead of falling back
// to the stub.

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/taskloop/adapters"
	"github.com/momentics/taskloop/api"
)

type kqueueAdapter struct {
	mu    sync.Mutex
	kq    int
	wakeR int
	wakeW int
	armed map[uint64]api.EventMask
	*adapters.SignalBridge
}

func newPlatformAdapter(wake func()) api.PlatformAdapter {
	a := &kqueueAdapter{armed: make(map[uint64]api.EventMask)}
	a.SignalBridge = adapters.NewSignalBridge(wake)
	return a
}

func (a *kqueueAdapter) Init(scheduler any, appContext any) (any, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, api.IoError(err)
	}
	fds, err := mkPipe()
	if err != nil {
		unix.Close(kq)
		return nil, api.IoError(err)
	}
	a.kq, a.wakeR, a.wakeW = kq, fds[0], fds[1]

	changes := []unix.Kevent_t{{
		Ident:  uint64(a.wakeR),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD,
	}}
	if _, err := unix.Kevent(a.kq, changes, nil, nil); err != nil {
		unix.Close(a.kq)
		unix.Close(a.wakeR)
		unix.Close(a.wakeW)
		return nil, api.IoError(err)
	}
	return a, nil
}

func (a *kqueueAdapter) Uninit(scheduler any, state any) {
	unix.Close(a.wakeR)
	unix.Close(a.wakeW)
	unix.Close(a.kq)
}

func (a *kqueueAdapter) ArmFD(scheduler any, state any, fd uint64, mask api.EventMask) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, existed := a.armed[fd]
	var changes []unix.Kevent_t
	if existed {
		changes = append(changes, kevent(fd, unix.EVFILT_READ, unix.EV_DELETE), kevent(fd, unix.EVFILT_WRITE, unix.EV_DELETE))
	}
	if mask == 0 {
		delete(a.armed, fd)
		if len(changes) == 0 {
			return nil
		}
		_, err := unix.Kevent(a.kq, changes, nil, nil)
		return wrapErrno(err)
	}

	changes = changes[:0]
	if mask&api.Read != 0 {
		changes = append(changes, kevent(fd, unix.EVFILT_READ, unix.EV_ADD))
	}
	if mask&api.Write != 0 {
		changes = append(changes, kevent(fd, unix.EVFILT_WRITE, unix.EV_ADD))
	}
	if _, err := unix.Kevent(a.kq, changes, nil, nil); err != nil {
		return api.IoError(err)
	}
	a.armed[fd] = mask
	_ = prev
	return nil
}

func kevent(fd uint64, filter int16, flags uint16) unix.Kevent_t {
	return unix.Kevent_t{Ident: fd, Filter: filter, Flags: flags}
}

func (a *kqueueAdapter) Poll(scheduler any, state any, timeoutMicros int64) (api.PollResult, error) {
	const maxEvents = 128
	var raw [maxEvents]unix.Kevent_t

	var ts *unix.Timespec
	if timeoutMicros >= 0 {
		t := unix.NsecToTimespec(timeoutMicros * 1000)
		ts = &t
	}

	n, err := unix.Kevent(a.kq, nil, raw[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return api.PollResult{Status: api.PollInterrupted}, nil
		}
		return api.PollResult{}, api.IoError(err)
	}
	if n == 0 {
		return api.PollResult{Status: api.PollTimeout}, nil
	}

	ready := make([]api.ReadyFd, 0, n)
	woke := false
	for i := 0; i < n; i++ {
		ev := raw[i]
		if int(ev.Ident) == a.wakeR {
			woke = true
			drainPipe(a.wakeR)
			continue
		}
		var m api.EventMask
		switch ev.Filter {
		case unix.EVFILT_READ:
			m = api.Read
		case unix.EVFILT_WRITE:
			m = api.Write
		}
		if ev.Flags&unix.EV_EOF != 0 {
			m |= api.Expire
		}
		ready = append(ready, api.ReadyFd{Fd: uint64(ev.Ident), Mask: m})
	}
	if woke && len(ready) == 0 {
		return api.PollResult{Status: api.PollInterrupted}, nil
	}
	return api.PollResult{Status: api.PollReady, Ready: ready}, nil
}

func (a *kqueueAdapter) Wake(scheduler any, state any) error {
	return wakePipe(a.wakeW)
}
