package pipeline

import (
	"testing"

	"github.com/ftahirops/colonysim/model"
)

func TestEffectiveOpSpecAppliesMutationWithoutTouchingBase(t *testing.T) {
	base := model.OpSpec{ID: "decode", BaseWorkUnits: 10, BaseFaultProb: 0.02}
	muts := []model.Mutation{
		{TargetOp: "decode", WorkFactor: 0.5},
	}
	eff := EffectiveOpSpec(base, muts, 5)
	if eff.BaseWorkUnits != 5 {
		t.Fatalf("expected mutated work units 5, got %v", eff.BaseWorkUnits)
	}
	if base.BaseWorkUnits != 10 {
		t.Fatalf("base spec must not be mutated, got %v", base.BaseWorkUnits)
	}
}

func TestEffectiveOpSpecIgnoresExpiredMutation(t *testing.T) {
	base := model.OpSpec{ID: "decode", BaseWorkUnits: 10}
	muts := []model.Mutation{
		{TargetOp: "decode", WorkFactor: 0.5, ExpiresTick: 100},
	}
	eff := EffectiveOpSpec(base, muts, 200)
	if eff.BaseWorkUnits != 10 {
		t.Fatalf("expected expired mutation to be ignored, got %v", eff.BaseWorkUnits)
	}
}

func TestNewJobComputesDeadline(t *testing.T) {
	pipe := model.PipelineSpec{ID: "p1", Ops: []model.OpSpecID{"a", "b"}, BaseDeadline: 20}
	j := NewJob("j1", pipe, 100, 0)
	if j.DeadlineTick != 120 {
		t.Fatalf("expected deadline 120, got %d", j.DeadlineTick)
	}
	if j.Status != model.JobPending {
		t.Fatalf("expected new job Pending, got %v", j.Status)
	}
	if len(j.Attempts) != 2 {
		t.Fatalf("expected per-op attempts slice sized to pipeline, got %d", len(j.Attempts))
	}
}

func TestRemainingWorkUnitsSumsFromCurrentIndex(t *testing.T) {
	pipe := model.PipelineSpec{ID: "p1", Ops: []model.OpSpecID{"a", "b", "c"}}
	ops := map[model.OpSpecID]model.OpSpec{
		"a": {ID: "a", BaseWorkUnits: 4},
		"b": {ID: "b", BaseWorkUnits: 32},
		"c": {ID: "c", BaseWorkUnits: 8},
	}
	j := &model.Job{OpIndex: 1}
	got := RemainingWorkUnits(j, pipe, ops, nil, 0)
	if got != 40 {
		t.Fatalf("expected 40, got %v", got)
	}
}

func TestCurrentOpOutOfRange(t *testing.T) {
	pipe := model.PipelineSpec{Ops: []model.OpSpecID{"a"}}
	j := &model.Job{OpIndex: 1}
	if _, ok := CurrentOp(j, pipe); ok {
		t.Fatalf("expected ok=false once job has advanced past the last op")
	}
}
