// control/tunables.go
// Author: momentics <momentics@gmail.com>
//
// Default scheduler tunables exposed through ConfigStore: the freelist
// cap, freelist trim period, timer dispatch batch size, and opportunistic
// dispatch threshold are all configurable rather than hardcoded.

package control

const (
	KeyMaxTasks             = "scheduler.max_tasks"
	KeyFreelistCap          = "scheduler.freelist_cap"
	KeyFreelistTrimInterval = "scheduler.freelist_trim_interval_s"
	KeyTimerBatchLimit      = "scheduler.timer_batch_limit"
	KeyOpportunisticMicros  = "scheduler.opportunistic_threshold_us"
)

// DefaultTunables seeds a ConfigStore with the scheduler's defaults:
// a freelist floor of 10, a 3600s trim period, a 40-timer dispatch budget,
// and a 50ms opportunistic-timer-dispatch threshold.
func DefaultTunables() map[string]any {
	return map[string]any{
		KeyMaxTasks:             0,
		KeyFreelistCap:          10,
		KeyFreelistTrimInterval: 3600,
		KeyTimerBatchLimit:      40,
		KeyOpportunisticMicros:  50000,
	}
}

// NewTunablesStore returns a ConfigStore pre-seeded with DefaultTunables.
func NewTunablesStore() *ConfigStore {
	cs := NewConfigStore()
	cs.SetConfig(DefaultTunables())
	return cs
}
