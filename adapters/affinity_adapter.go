// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
// Description:
//   Adapter pinning a scheduler's dispatch goroutine to a CPU, delegating
//   to the affinity package's platform-specific primitives.

package adapters

import (
	"github.com/momentics/taskloop/affinity"
)

// AffinityAdapter tracks the current CPU binding for a scheduler's
// dispatch goroutine and manages pin/unpin operations. Unlike the
// NUMA-socket binding it is descended from, it pins a single goroutine's
// carrier OS thread (via runtime.LockOSThread, done by the caller) to one
// CPU, not a whole process to a socket.
type AffinityAdapter struct {
	currentCPU int
	pinned     bool
}

// NewAffinityAdapter creates an AffinityAdapter with no binding (-1).
func NewAffinityAdapter() *AffinityAdapter {
	return &AffinityAdapter{currentCPU: -1}
}

// Pin binds the calling OS thread to cpuID. The caller must have already
// called runtime.LockOSThread, since affinity is a thread, not goroutine,
// property.
func (a *AffinityAdapter) Pin(cpuID int) error {
	if err := affinity.SetAffinity(cpuID); err != nil {
		return err
	}
	a.currentCPU = cpuID
	a.pinned = true
	return nil
}

// Unpin clears the adapter's recorded binding. It does not change the OS
// thread's affinity mask, which keeps the CPU set by the last Pin.
func (a *AffinityAdapter) Unpin() {
	a.pinned = false
	a.currentCPU = -1
}

// CPU returns the CPU index this adapter last pinned to, or -1.
func (a *AffinityAdapter) CPU() int {
	return a.currentCPU
}

// Pinned reports whether Pin succeeded and Unpin has not been called since.
func (a *AffinityAdapter) Pinned() bool {
	return a.pinned
}
