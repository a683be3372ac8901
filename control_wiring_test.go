package taskloop_test

import (
	"testing"

	"github.com/momentics/taskloop"
	"github.com/momentics/taskloop/adapters"
	"github.com/momentics/taskloop/api"
	"github.com/momentics/taskloop/fake"
)

// WithControl wires a ControlAdapter's debug probes to the scheduler's
// live event registry; Stats() must reflect a Declare/Delete round trip.
func TestControlAdapterReportsEventSignatures(t *testing.T) {
	ctl := adapters.NewControlAdapter()
	adapter := fake.NewFakeAdapter()
	s, err := taskloop.Init(adapter, nil, nil, taskloop.WithControl(ctl))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := s.Declare("order.created", api.ParamString, api.ParamInt); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	stats := ctl.Stats()
	events, ok := stats["debug.scheduler.events"].(map[string][]api.ParamKind)
	if !ok {
		t.Fatalf("expected debug.scheduler.events in Stats(), got %+v", stats)
	}
	params, ok := events["order.created"]
	if !ok || len(params) != 2 || params[0] != api.ParamString || params[1] != api.ParamInt {
		t.Fatalf("expected order.created params [String Int], got %+v", events)
	}

	if err := s.Delete("order.created"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	stats = ctl.Stats()
	events = stats["debug.scheduler.events"].(map[string][]api.ParamKind)
	if _, ok := events["order.created"]; ok {
		t.Fatalf("expected order.created to be gone after Delete, got %+v", events)
	}

	if maxTasks, ok := stats["scheduler.max_tasks"].(int); !ok || maxTasks != 0 {
		t.Fatalf("expected scheduler.max_tasks metric to be wired, got %+v (ok=%v)", stats["scheduler.max_tasks"], ok)
	}
}
