// File: api/adapter.go
// Author: momentics <momentics@gmail.com>
//
// PlatformAdapter is the external collaborator the scheduler core polls
// through. Concrete adapters live in package reactor; package
// fake supplies a deterministic adapter for tests.

package api

// PollStatus is the outcome of one PlatformAdapter.Poll call.
type PollStatus int

const (
	// PollReady means one or more fds became ready; Ready holds them.
	PollReady PollStatus = iota
	// PollTimeout means the poll's deadline elapsed with nothing ready.
	PollTimeout
	// PollInterrupted means the poll call was interrupted (e.g. EINTR) and
	// should be retried by the caller without treating it as an error.
	PollInterrupted
	// PollStopped means the adapter itself decided the loop must exit; this
	// is unusual and only used by adapters that can be shut down out of
	// band from the scheduler.
	PollStopped
)

// ReadyFd is one fd the poller observed ready, with the returned mask
// populated.
type ReadyFd struct {
	Fd     uint64
	Mask   EventMask
}

// PollResult is the return value of PlatformAdapter.Poll.
type PollResult struct {
	Status PollStatus
	Ready  []ReadyFd
}

// PlatformAdapter is the poll/arm/wake contract a platform-specific reactor
// implements, extended with the signal trampoline operations. scheduler
// and state are opaque to the adapter: scheduler identifies the caller for
// logging/metrics, state is whatever Init returned and is threaded back
// through every later call.
type PlatformAdapter interface {
	// Init sets up the poller and the wake primitive (self-pipe, eventfd,
	// or platform equivalent) and returns adapter state.
	Init(scheduler any, appContext any) (state any, err error)

	// Uninit releases poller resources. Called only after the scheduler has
	// reaped every task.
	Uninit(scheduler any, state any)

	// ArmFD registers or re-registers fd for mask. A mask of 0 disables
	// delivery for fd without removing the task from the scheduler.
	ArmFD(scheduler any, state any, fd uint64, mask EventMask) error

	// Poll blocks up to timeoutMicros (µs); -1 blocks until an event or a
	// Wake, 0 returns immediately after servicing anything already ready.
	Poll(scheduler any, state any, timeoutMicros int64) (PollResult, error)

	// Wake causes a concurrent Poll call to return promptly.
	Wake(scheduler any, state any) error

	// SignalRegister installs a process-signal trampoline for signo. Only
	// one callback may be registered per signal number.
	SignalRegister(scheduler any, state any, signo int, cb Callback, ctx any) error

	// SignalUnregister removes the trampoline installed for signo.
	SignalUnregister(scheduler any, state any, signo int) error

	// SignalsCall invokes the callbacks of every signal that has been
	// delivered since the last call, then clears the pending set. The
	// scheduler lock is not held while this runs.
	SignalsCall(scheduler any, state any)
}
