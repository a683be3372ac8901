package taskloop_test

import (
	"testing"

	"github.com/momentics/taskloop"
	"github.com/momentics/taskloop/api"
	"github.com/momentics/taskloop/fake"
)

// Seed 4: event fan-out with veto. a and b invoked in order; c not invoked.
func TestEventFanOutVeto(t *testing.T) {
	adapter := fake.NewFakeAdapter()
	s, err := taskloop.Init(adapter, nil, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := s.Declare("x"); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	var order []string
	a := func(schedule any, appContext any, task any, context any, args []any) bool {
		order = append(order, "a")
		return true
	}
	b := func(schedule any, appContext any, task any, context any, args []any) bool {
		order = append(order, "b")
		return false
	}
	c := func(schedule any, appContext any, task any, context any, args []any) bool {
		order = append(order, "c")
		return true
	}

	if err := s.Connect("x", a, nil); err != nil {
		t.Fatalf("Connect a: %v", err)
	}
	if err := s.Connect("x", b, "b-ctx"); err != nil {
		t.Fatalf("Connect b: %v", err)
	}
	if err := s.Connect("x", c, nil); err != nil {
		t.Fatalf("Connect c: %v", err)
	}

	if err := s.Signal("x"); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected [a b], got %v", order)
	}
}

// Seed 5: event delete mid-signal stops the fan-out; the event and its
// subscriptions are gone after the deferred cleanup timer fires.
func TestEventDeleteMidSignal(t *testing.T) {
	adapter := fake.NewFakeAdapter()
	s, err := taskloop.Init(adapter, nil, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.Declare("x")

	var order []string
	aDeletes := func(schedule any, appContext any, task any, context any, args []any) bool {
		order = append(order, "a")
		s.Delete("x")
		return true
	}
	b := func(schedule any, appContext any, task any, context any, args []any) bool {
		order = append(order, "b")
		return true
	}
	s.Connect("x", aDeletes, nil)
	s.Connect("x", b, nil)

	if err := s.Signal("x"); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("expected only a invoked, got %v", order)
	}

	// The deferred cleanup timer is a zero-delay timeout on the root;
	// dispatch it.
	adapter.EnqueueResult(api.PollResult{Status: api.PollTimeout})
	if _, err := s.RunOnce(0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if _, err := s.Declare("x"); err != nil {
		t.Fatalf("expected to be able to re-declare x after cleanup, got %v", err)
	}
}

// event_connect(e, cb, ctx); event_disconnect(e, cb, ctx) leaves the
// subscriber list unchanged (round-trip law).
func TestConnectDisconnectRoundTrip(t *testing.T) {
	adapter := fake.NewFakeAdapter()
	s, err := taskloop.Init(adapter, nil, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.Declare("x")

	cb := func(schedule any, appContext any, task any, context any, args []any) bool { return true }
	if err := s.Connect("x", cb, nil); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Disconnect("x", cb, nil); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	var fired bool
	other := func(schedule any, appContext any, task any, context any, args []any) bool {
		fired = true
		return true
	}
	s.Connect("x", other, nil)
	s.Signal("x")
	if !fired {
		t.Fatalf("expected remaining subscriber to fire")
	}
}

// Double-declaration of a live event fails.
func TestDeclareDuplicateFails(t *testing.T) {
	adapter := fake.NewFakeAdapter()
	s, _ := taskloop.Init(adapter, nil, nil)
	s.Declare("x")
	if _, err := s.Declare("x"); api.CodeOf(err) != api.ErrCodeAlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}
