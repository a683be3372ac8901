package taskloop_test

import (
	"testing"

	"github.com/momentics/taskloop"
	"github.com/momentics/taskloop/api"
	"github.com/momentics/taskloop/fake"
)

func TestAddSignalDispatchedDuringRunOnce(t *testing.T) {
	adapter := fake.NewFakeAdapter()
	s, err := taskloop.Init(adapter, nil, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got api.EventMask
	if err := s.AddSignal(2, func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		got = typ
	}, nil); err != nil {
		t.Fatalf("AddSignal: %v", err)
	}

	adapter.RaiseSignal(2)
	adapter.EnqueueResult(api.PollResult{Status: api.PollTimeout})
	if _, err := s.RunOnce(0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if got != api.Interrupt {
		t.Fatalf("expected the signal callback to run with Interrupt, got %v", got)
	}
}

func TestRemoveSignalStopsDelivery(t *testing.T) {
	adapter := fake.NewFakeAdapter()
	s, err := taskloop.Init(adapter, nil, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	fired := false
	s.AddSignal(2, func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		fired = true
	}, nil)
	if err := s.RemoveSignal(2); err != nil {
		t.Fatalf("RemoveSignal: %v", err)
	}

	adapter.RaiseSignal(2)
	adapter.EnqueueResult(api.PollResult{Status: api.PollTimeout})
	s.RunOnce(0)

	if fired {
		t.Fatalf("expected no delivery after RemoveSignal")
	}
}
