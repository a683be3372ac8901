//go:build !linux && !windows && !darwin && !freebsd && !netbsd && !openbsd

// File: reactor/stub_adapter.go
// Author: momentics <momentics@gmail.com>
//
// Fallback for platforms with no native poller wired in, grounded on the
// teacher's reactor/reactor_stub.go.

package reactor

import "github.com/momentics/taskloop/api"

func newPlatformAdapter(wake func()) api.PlatformAdapter {
	return stubAdapter{}
}

type stubAdapter struct{}

func (stubAdapter) Init(scheduler any, appContext any) (any, error) {
	return nil, api.NewError(api.ErrCodeIO, "reactor: this platform is not supported")
}
func (stubAdapter) Uninit(scheduler any, state any)                                  {}
func (stubAdapter) ArmFD(scheduler any, state any, fd uint64, mask api.EventMask) error {
	return api.ErrNotSupported
}
func (stubAdapter) Poll(scheduler any, state any, timeoutMicros int64) (api.PollResult, error) {
	return api.PollResult{}, api.ErrNotSupported
}
func (stubAdapter) Wake(scheduler any, state any) error { return api.ErrNotSupported }
func (stubAdapter) SignalRegister(scheduler any, state any, signo int, cb api.Callback, ctx any) error {
	return api.ErrNotSupported
}
func (stubAdapter) SignalUnregister(scheduler any, state any, signo int) error {
	return api.ErrNotSupported
}
func (stubAdapter) SignalsCall(scheduler any, state any) {}
