//go:build linux

// File: reactor/epoll_adapter.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) backend for the scheduler's api.PlatformAdapter.
// A self-pipe registered as an ordinary read-armed fd doubles as the
// scheduler's cross-thread wakeup primitive.

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/taskloop/adapters"
	"github.com/momentics/taskloop/api"
)

type epollAdapter struct {
	mu        sync.Mutex
	epfd      int
	wakeR     int
	wakeW     int
	armed     map[uint64]api.EventMask
	*adapters.SignalBridge
}

func newPlatformAdapter(wake func()) api.PlatformAdapter {
	a := &epollAdapter{armed: make(map[uint64]api.EventMask)}
	a.SignalBridge = adapters.NewSignalBridge(wake)
	return a
}

func (a *epollAdapter) Init(scheduler any, appContext any) (any, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.IoError(err)
	}
	fds, err := mkPipe()
	if err != nil {
		unix.Close(epfd)
		return nil, api.IoError(err)
	}
	a.epfd, a.wakeR, a.wakeW = epfd, fds[0], fds[1]

	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(a.wakeR)}
	if err := unix.EpollCtl(a.epfd, unix.EPOLL_CTL_ADD, a.wakeR, ev); err != nil {
		unix.Close(a.epfd)
		unix.Close(a.wakeR)
		unix.Close(a.wakeW)
		return nil, api.IoError(err)
	}
	return a, nil
}

func (a *epollAdapter) Uninit(scheduler any, state any) {
	unix.Close(a.wakeR)
	unix.Close(a.wakeW)
	unix.Close(a.epfd)
}

func (a *epollAdapter) ArmFD(scheduler any, state any, fd uint64, mask api.EventMask) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, existed := a.armed[fd]
	if mask == 0 {
		if !existed {
			return nil
		}
		delete(a.armed, fd)
		return wrapErrno(unix.EpollCtl(a.epfd, unix.EPOLL_CTL_DEL, int(fd), nil))
	}

	ev := &unix.EpollEvent{Fd: int32(fd), Events: toEpollEvents(mask)}
	op := unix.EPOLL_CTL_MOD
	if !existed {
		op = unix.EPOLL_CTL_ADD
	}
	if err := unix.EpollCtl(a.epfd, op, int(fd), ev); err != nil {
		return api.IoError(err)
	}
	a.armed[fd] = mask
	_ = prev
	return nil
}

func (a *epollAdapter) Poll(scheduler any, state any, timeoutMicros int64) (api.PollResult, error) {
	const maxEvents = 128
	var raw [maxEvents]unix.EpollEvent

	timeoutMs := -1
	if timeoutMicros >= 0 {
		timeoutMs = int(timeoutMicros / 1000)
	}

	n, err := unix.EpollWait(a.epfd, raw[:], timeoutMs)
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
		if int(ev.Fd) == a.wakeR {
			woke = true
			drainPipe(a.wakeR)
			continue
		}
		ready = append(ready, api.ReadyFd{Fd: uint64(ev.Fd), Mask: fromEpollEvents(ev.Events)})
	}
	if woke && len(ready) == 0 {
		return api.PollResult{Status: api.PollInterrupted}, nil
	}
	return api.PollResult{Status: api.PollReady, Ready: ready}, nil
}

func (a *epollAdapter) Wake(scheduler any, state any) error {
	return wakePipe(a.wakeW)
}

func toEpollEvents(mask api.EventMask) uint32 {
	var e uint32
	if mask&api.Read != 0 {
		e |= unix.EPOLLIN
	}
	if mask&api.Write != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func fromEpollEvents(e uint32) api.EventMask {
	var m api.EventMask
	if e&unix.EPOLLIN != 0 {
		m |= api.Read
	}
	if e&unix.EPOLLOUT != 0 {
		m |= api.Write
	}
	if e&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		m |= api.Expire
	}
	return m
}

func wrapErrno(err error) error {
	if err == nil {
		return nil
	}
	return api.IoError(err)
}
