// Package pipeline resolves effective op/pipeline specs from a base spec
// plus the layered set of active mutations (Design Notes: "effective
// op/pipeline spec... compute 'effective' on demand via a pure function —
// this keeps replay and rollback trivial"), and admits new jobs onto the
// pending queue (spec.md §3 Job, §4.2 admission control).
package pipeline

import "github.com/ftahirops/colonysim/model"

// EffectiveOpSpec folds every active mutation targeting base.ID into base,
// without mutating base itself. Mutations are applied in the order given
// (callers pass them pre-sorted by Source for determinism); multiple
// mutations compose multiplicatively on WorkFactor/FaultFactor.
// A Mutation with an empty TargetOp/TargetPipe is a colony-wide effect
// (e.g. a Black Swan's blanket degradation) rather than one scoped to a
// single spec; EffectiveOpSpec/EffectivePipelineSpec apply it to every
// base spec they're called with.
func EffectiveOpSpec(base model.OpSpec, mutations []model.Mutation, tick uint64) model.OpSpec {
	out := base
	for _, m := range mutations {
		if m.TargetOp != "" && m.TargetOp != base.ID {
			continue
		}
		if m.ExpiresTick != 0 && tick >= m.ExpiresTick {
			continue
		}
		if m.WorkFactor != 0 {
			out.BaseWorkUnits *= m.WorkFactor
		}
		if m.FaultFactor != 0 {
			out.BaseFaultProb *= m.FaultFactor
			if out.BaseFaultProb > 1 {
				out.BaseFaultProb = 1
			}
		}
	}
	return out
}

// EffectivePipelineSpec folds every active mutation targeting base.ID into
// base's deadline, marking Mutated when at least one mutation applied.
func EffectivePipelineSpec(base model.PipelineSpec, mutations []model.Mutation, tick uint64) model.PipelineSpec {
	out := base
	for _, m := range mutations {
		if m.TargetPipe != "" && m.TargetPipe != base.ID {
			continue
		}
		if m.ExpiresTick != 0 && tick >= m.ExpiresTick {
			continue
		}
		if m.DeadlineAdd != 0 {
			out.BaseDeadline += m.DeadlineAdd
			out.Mutated = true
		}
	}
	return out
}

// ExpansionFactor returns the work-unit multiplier EffectiveOpSpec would
// apply to base, used by the scheduler's SJF ranking without needing a
// fully resolved spec copy.
func ExpansionFactor(base model.OpSpec, mutations []model.Mutation, tick uint64) float64 {
	eff := EffectiveOpSpec(base, mutations, tick)
	if base.BaseWorkUnits == 0 {
		return 1
	}
	return eff.BaseWorkUnits / base.BaseWorkUnits
}
