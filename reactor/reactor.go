// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral factory for the scheduler's api.PlatformAdapter.

package reactor

import "github.com/momentics/taskloop/api"

// NewAdapter constructs the api.PlatformAdapter appropriate for the
// running platform. wake is invoked by the adapter's internal signal
// trampoline to interrupt a blocked Poll call.
func NewAdapter(wake func()) api.PlatformAdapter {
	return newPlatformAdapter(wake)
}
