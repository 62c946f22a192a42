package binhost

import "testing"

func TestRunEchoesInputDoubled(t *testing.T) {
	mod := Module{Code: []Instruction{
		{Op: OpReadInput, Arg: 0},
		{Op: OpPushConst, Arg: 2},
		{Op: OpMul},
		{Op: OpWriteOutput, Arg: 0},
		{Op: OpPushConst, Arg: int64(StatusSuccess)},
		{Op: OpHalt},
	}}
	res, err := Run(mod, OpContext{}, []byte{21}, 1, 100, 1, Imports{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %v", res.Status)
	}
	if res.Output[0] != 42 {
		t.Fatalf("expected output[0]=42, got %d", res.Output[0])
	}
}

func TestRunFuelExhaustionIsStickyFault(t *testing.T) {
	mod := Module{Code: []Instruction{
		{Op: OpPushConst, Arg: 0},
		{Op: OpJump, Arg: 0}, // infinite loop
	}}
	res, err := Run(mod, OpContext{}, nil, 0, 5, 1, Imports{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusStickyFault {
		t.Fatalf("expected sticky fault on fuel exhaustion, got %v", res.Status)
	}
	if res.FuelUsed != 5 {
		t.Fatalf("expected fuel used to hit the budget, got %d", res.FuelUsed)
	}
}

func TestRunRejectsOversizedBuffers(t *testing.T) {
	mod := Module{Code: []Instruction{{Op: OpHalt}}}
	big := make([]byte, PageSize+1)
	res, err := Run(mod, OpContext{}, big, 0, 10, 1, Imports{})
	if err == nil {
		t.Fatalf("expected an error for input exceeding the memory-page budget")
	}
	if res.Status != StatusInvalidInput {
		t.Fatalf("expected InvalidInput status, got %v", res.Status)
	}
}

func TestRunDeniesUngrantedCapability(t *testing.T) {
	mod := Module{Code: []Instruction{
		{Op: OpPushRandom},
		{Op: OpHalt},
	}}
	called := false
	imp := Imports{RNG: func() uint64 { called = true; return 7 }}

	res, err := Run(mod, OpContext{Capabilities: 0}, nil, 0, 10, 1, imp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusCapabilityDenied {
		t.Fatalf("expected CapabilityDenied without CapRNG granted, got %v", res.Status)
	}
	if called {
		t.Fatalf("host RNG must never be reachable without its capability bit")
	}
}

func TestRunAllowsGrantedRNGCapability(t *testing.T) {
	mod := Module{Code: []Instruction{
		{Op: OpPushRandom},
		{Op: OpHalt},
	}}
	imp := Imports{RNG: func() uint64 { return 0x2a }}

	res, err := Run(mod, OpContext{Capabilities: CapRNG}, nil, 0, 10, 1, imp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != Status(0x2a) {
		t.Fatalf("expected halt status derived from the RNG draw, got %v", res.Status)
	}
}
