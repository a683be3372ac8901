package taskloop_test

import (
	"sync"
	"testing"

	"github.com/momentics/taskloop"
	"github.com/momentics/taskloop/api"
	"github.com/momentics/taskloop/fake"
)

// testClock is a manually-advanced clock so timer tests don't depend on
// real wall-clock sleeps.
type testClock struct {
	mu        sync.Mutex
	sec, usec int64
}

func (c *testClock) now() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sec, c.usec
}

func (c *testClock) advance(sec, usec int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sec += sec
	c.usec += usec
	for c.usec >= 1_000_000 {
		c.usec -= 1_000_000
		c.sec++
	}
}

func newTestScheduler(t *testing.T) (*taskloop.Scheduler, *fake.FakeAdapter, *testClock) {
	t.Helper()
	adapter := fake.NewFakeAdapter()
	clk := &testClock{}
	s, err := taskloop.Init(adapter, nil, nil, taskloop.WithClock(clk.now))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s, adapter, clk
}

// Seed 1: single timer fires exactly once with Expire/ctx, queue empty after.
func TestSingleTimer(t *testing.T) {
	s, adapter, clk := newTestScheduler(t)

	var calls []api.EventMask
	var gotCtx any
	s.AddTimeout(func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		calls = append(calls, typ)
		gotCtx = context
	}, 42, 0, 50_000)

	clk.advance(0, 50_000)
	adapter.EnqueueResult(api.PollResult{Status: api.PollTimeout})

	if _, err := s.RunOnce(-1); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(calls) != 1 || calls[0] != api.Expire {
		t.Fatalf("expected exactly one Expire callback, got %v", calls)
	}
	if gotCtx != 42 {
		t.Fatalf("expected ctx=42, got %v", gotCtx)
	}
	if n := s.PendingTimeouts(); n != 0 {
		t.Fatalf("expected empty timeout queue, got %d pending", n)
	}
}

// Seed 2: cancel-before-fire fires zero callbacks.
func TestCancelBeforeFire(t *testing.T) {
	s, adapter, clk := newTestScheduler(t)

	fired := 0
	task := s.AddTimeout(func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		fired++
	}, 1, 0, 10_000)

	if err := s.Invalidate(task); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	clk.advance(0, 20_000)
	adapter.EnqueueResult(api.PollResult{Status: api.PollTimeout})
	if _, err := s.RunOnce(20_000); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if fired != 0 {
		t.Fatalf("expected zero callbacks, got %d", fired)
	}
}

// Seed 3: fd re-arm with send_events dispatches read then write
// synchronously before SetListenMask returns.
func TestFdRearmSendEvents(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	var order []api.EventMask
	_, err := s.AddFD(7, func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		order = append(order, typ)
	}, nil)
	if err != nil {
		t.Fatalf("AddFD: %v", err)
	}

	if err := s.SetListenMask(7, api.Read|api.Write, true); err != nil {
		t.Fatalf("SetListenMask: %v", err)
	}

	if len(order) != 2 || order[0] != api.Read || order[1] != api.Write {
		t.Fatalf("expected [read write], got %v", order)
	}
}

// AddFD present-and-valid returns the existing handle unchanged.
func TestAddFDIdempotentWhenValid(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	cb := func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {}
	t1, err := s.AddFD(3, cb, "a")
	if err != nil {
		t.Fatalf("AddFD: %v", err)
	}
	t2, err := s.AddFD(3, cb, "b")
	if err != nil {
		t.Fatalf("AddFD (second): %v", err)
	}
	if t1 != t2 {
		t.Fatalf("expected same handle returned for present-and-valid fd")
	}
}

// AddFD present-and-invalid evicts the stale entry and inserts fresh.
func TestAddFDReplacesInvalid(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	cb := func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {}
	t1, _ := s.AddFD(3, cb, nil)
	s.Invalidate(t1)

	t2, err := s.AddFD(3, cb, nil)
	if err != nil {
		t.Fatalf("AddFD (replace): %v", err)
	}
	if t1 == t2 {
		t.Fatalf("expected a fresh handle after invalidation")
	}
	if !t2.Valid() {
		t.Fatalf("expected replacement handle to be valid")
	}
}

// get_listen_mask(k) == the mask last set by set_listen_mask(k, m).
func TestSetGetListenMaskRoundTrip(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	cb := func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {}
	s.AddFD(5, cb, nil)

	if err := s.SetListenMask(5, api.Write, false); err != nil {
		t.Fatalf("SetListenMask: %v", err)
	}
	if got := s.GetListenMask(5); got != api.Write {
		t.Fatalf("expected mask %v, got %v", api.Write, got)
	}
}

// add_fd; set_listen_mask(k, 0) suppresses further dispatch for k.
func TestUnsetListenSuppressesDispatch(t *testing.T) {
	s, adapter, _ := newTestScheduler(t)

	var fired int
	s.AddFD(9, func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		fired++
	}, nil)

	if !s.UnsetListen(9) {
		t.Fatalf("UnsetListen on a registered fd should succeed")
	}
	if mask, _ := adapter.ArmedMask(9); mask != 0 {
		t.Fatalf("expected adapter to have disarmed fd, got mask %v", mask)
	}

	// UnsetListen on an unknown fd returns false silently (SUPPLEMENTED
	// FEATURES item 3), no error.
	if s.UnsetListen(404) {
		t.Fatalf("expected false for unknown fd")
	}
}

// Invalidate is monotone: once invalidated the task stays invalid, and a
// second Invalidate is a no-op.
func TestInvalidateIsMonotone(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	task, _ := s.AddFD(1, func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {}, nil)

	s.Invalidate(task)
	if task.Valid() {
		t.Fatalf("expected task to be invalid")
	}
	// A second invalidate is a harmless no-op, not a resurrection.
	if err := s.Invalidate(task); err != nil {
		t.Fatalf("re-invalidating should be a no-op, got %v", err)
	}
	if task.Valid() {
		t.Fatalf("task must remain invalid")
	}
}
