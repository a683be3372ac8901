package adapters_test

import (
	"sync/atomic"
	"testing"

	"github.com/momentics/taskloop/adapters"
	"github.com/momentics/taskloop/api"
)

func TestSignalBridgeRegisterUnregister(t *testing.T) {
	var woken int32
	b := adapters.NewSignalBridge(func() { atomic.AddInt32(&woken, 1) })

	var calls int32
	cb := func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		atomic.AddInt32(&calls, 1)
	}

	if err := b.SignalRegister(nil, nil, 1, cb, nil); err != nil {
		t.Fatalf("SignalRegister: %v", err)
	}
	if err := b.SignalRegister(nil, nil, 1, cb, nil); err == nil {
		t.Fatalf("expected duplicate SignalRegister to fail")
	}

	if err := b.SignalUnregister(nil, nil, 1); err != nil {
		t.Fatalf("SignalUnregister: %v", err)
	}
	if err := b.SignalUnregister(nil, nil, 1); err == nil {
		t.Fatalf("expected SignalUnregister of unknown signo to fail")
	}
}

func TestSignalBridgeSignalsCallInvokesOnlyPending(t *testing.T) {
	b := adapters.NewSignalBridge(func() {})

	var aCalls, bCalls int32
	a := func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		atomic.AddInt32(&aCalls, 1)
	}
	bcb := func(schedule any, appContext any, typ api.EventMask, fd uint64, context any) {
		atomic.AddInt32(&bCalls, 1)
	}
	b.SignalRegister(nil, nil, 1, a, nil)
	b.SignalRegister(nil, nil, 2, bcb, nil)

	b.SignalsCall(nil, nil)
	if aCalls != 0 || bCalls != 0 {
		t.Fatalf("expected no callbacks with nothing pending")
	}
}
