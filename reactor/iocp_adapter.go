//go:build windows

// File: reactor/iocp_adapter.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP backend for the scheduler's api.PlatformAdapter.
// Completion keys double as fd identities; PostQueuedCompletionStatus with
// a reserved wake key implements the cross-thread wakeup primitive
// in place of the self-pipe used by the Unix adapters.

package reactor

import (
	"sync"

	"golang.org/x/sys/windows"

	"github.com/momentics/taskloop/adapters"
	"github.com/momentics/taskloop/api"
)

const wakeKey = ^uintptr(0)

type iocpAdapter struct {
	mu    sync.Mutex
	iocp  windows.Handle
	armed map[uint64]api.EventMask
	*adapters.SignalBridge
}

func newPlatformAdapter(wake func()) api.PlatformAdapter {
	a := &iocpAdapter{armed: make(map[uint64]api.EventMask)}
	a.SignalBridge = adapters.NewSignalBridge(wake)
	return a
}

func (a *iocpAdapter) Init(scheduler any, appContext any) (any, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, api.IoError(err)
	}
	a.iocp = port
	return a, nil
}

func (a *iocpAdapter) Uninit(scheduler any, state any) {
	windows.CloseHandle(a.iocp)
}

func (a *iocpAdapter) ArmFD(scheduler any, state any, fd uint64, mask api.EventMask) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if mask == 0 {
		delete(a.armed, fd)
		return nil
	}
	if _, existed := a.armed[fd]; !existed {
		h := windows.Handle(fd)
		if _, err := windows.CreateIoCompletionPort(h, a.iocp, uintptr(fd), 0); err != nil {
			return api.IoError(err)
		}
	}
	a.armed[fd] = mask
	return nil
}

func (a *iocpAdapter) Poll(scheduler any, state any, timeoutMicros int64) (api.PollResult, error) {
	timeout := uint32(windows.INFINITE)
	if timeoutMicros >= 0 {
		timeout = uint32(timeoutMicros / 1000)
	}

	var bytes uint32
	var key uintptr
	var overlapped *windows.Overlapped

	err := windows.GetQueuedCompletionStatus(a.iocp, &bytes, &key, &overlapped, timeout)
	if err != nil {
		if err == windows.WAIT_TIMEOUT {
			return api.PollResult{Status: api.PollTimeout}, nil
		}
		return api.PollResult{}, api.IoError(err)
	}
	if key == wakeKey {
		return api.PollResult{Status: api.PollInterrupted}, nil
	}

	a.mu.Lock()
	mask := a.armed[uint64(key)]
	a.mu.Unlock()

	return api.PollResult{
		Status: api.PollReady,
		Ready:  []api.ReadyFd{{Fd: uint64(key), Mask: mask}},
	}, nil
}

func (a *iocpAdapter) Wake(scheduler any, state any) error {
	return windows.PostQueuedCompletionStatus(a.iocp, 0, wakeKey, nil)
}
