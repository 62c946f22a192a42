package scripthost

import (
	"strings"
	"testing"
)

func TestUngrantedCapabilityLeavesGlobalUndefined(t *testing.T) {
	rt := New(0, HostContext{Tick: func() uint64 { return 42 }}, 100)
	v, err := rt.Run(`typeof get_tick`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.String() != "undefined" {
		t.Fatalf("expected get_tick to be unreachable without CapTickRead, got %v", v.String())
	}
}

func TestGrantedTickReadIsCallable(t *testing.T) {
	rt := New(CapTickRead, HostContext{Tick: func() uint64 { return 42 }}, 100)
	v, err := rt.Run(`get_tick()`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ToInteger() != 42 {
		t.Fatalf("expected 42, got %v", v.ToInteger())
	}
}

func TestLogForwardsToHostSink(t *testing.T) {
	var got string
	rt := New(CapLog, HostContext{Log: func(msg string) { got = msg }}, 100)
	if _, err := rt.Run(`log("hello from the colony")`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello from the colony" {
		t.Fatalf("expected log sink to receive the message, got %q", got)
	}
}

func TestStepBudgetInterruptsRunawayHostCalls(t *testing.T) {
	calls := 0
	rt := New(CapLog, HostContext{Log: func(msg string) { calls++ }}, 5)
	_, err := rt.Run(`for (var i = 0; i < 1000; i++) { log("x"); }`)
	if err == nil {
		t.Fatalf("expected a budget-exceeded error")
	}
	if !strings.Contains(err.Error(), "interrupted") {
		t.Fatalf("expected an interrupted-callback error, got %v", err)
	}
	if calls > 6 {
		t.Fatalf("expected the loop to stop close to the step budget, got %d calls", calls)
	}
}

func TestRegistryDispatchesInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(Callback{ID: "b", Kind: "on_tick", Source: "b()"})
	r.Register(Callback{ID: "a", Kind: "on_tick", Source: "a()"})

	cbs := r.ForKind("on_tick")
	if len(cbs) != 2 || cbs[0].ID != "b" || cbs[1].ID != "a" {
		t.Fatalf("expected registration order [b a], got %+v", cbs)
	}
}

func TestRegistryPersistentlyDisablesAfterRepeatedFailures(t *testing.T) {
	r := NewRegistry()
	r.Register(Callback{ID: "flaky", Kind: "on_tick"})

	for i := 0; i < PersistentDisableThreshold; i++ {
		r.ResetTick()
		r.ReportFailure("flaky")
	}

	r.ResetTick()
	if !r.IsDisabled("flaky") {
		t.Fatalf("expected flaky to be permanently disabled after %d failures", PersistentDisableThreshold)
	}
	if len(r.ForKind("on_tick")) != 0 {
		t.Fatalf("expected no callbacks returned for a permanently disabled id")
	}
}

func TestRegistryTickFailureOnlySkipsCurrentTick(t *testing.T) {
	r := NewRegistry()
	r.Register(Callback{ID: "one-off", Kind: "on_tick"})

	r.ReportFailure("one-off")
	if len(r.ForKind("on_tick")) != 0 {
		t.Fatalf("expected the callback to be skipped on the tick it failed")
	}

	r.ResetTick()
	if len(r.ForKind("on_tick")) != 1 {
		t.Fatalf("expected the callback to be eligible again after ResetTick, below the disable threshold")
	}
}

func TestReloaderRollsBackOnBadSource(t *testing.T) {
	reloader, err := NewReloader(CapLog, HostContext{Log: func(string) {}}, 100, `var x = 1;`)
	if err != nil {
		t.Fatalf("unexpected error building reloader: %v", err)
	}
	before := reloader.Source()

	if err := reloader.Reload(`this is not valid javascript {{{`); err == nil {
		t.Fatalf("expected reload with broken source to fail")
	}
	if reloader.Source() != before {
		t.Fatalf("expected source to remain unchanged after a rejected reload")
	}
}

func TestReloaderSwapsStateAcrossSuccessfulReload(t *testing.T) {
	var saved string
	var restored string
	ctx := HostContext{
		SaveState: func() (string, error) { return "colony-state-v1", nil },
		LoadState: func(s string) error { restored = s; return nil },
	}
	reloader, err := NewReloader(CapSaveState|CapLoadState, ctx, 100, `var x = 1;`)
	if err != nil {
		t.Fatalf("unexpected error building reloader: %v", err)
	}

	if err := reloader.Reload(`var y = 2;`); err != nil {
		t.Fatalf("expected a valid reload to succeed: %v", err)
	}
	saved = "colony-state-v1"
	if restored != saved {
		t.Fatalf("expected restored state to match the pre-reload snapshot, got %q", restored)
	}
	if reloader.Source() != `var y = 2;` {
		t.Fatalf("expected source to update after a successful reload")
	}
}
