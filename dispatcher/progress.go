// Package dispatcher advances every Running job by one tick's progress
// and resolves op/job completion (spec.md §4.3). It generalizes the
// teacher's "collect observations, reduce to one aggregate, act" loop
// shape from engine.Engine.Tick into a per-job progress reduction keyed
// by job id.
package dispatcher

import (
	"github.com/ftahirops/colonysim/model"
)

// baseRate is the progress a worker at full skill, zero corruption and no
// throttling contributes to its op per tick. Work units are an abstract
// currency scaled so that baseRate = 1 makes OpSpec.BaseWorkUnits read
// directly as "ticks to complete at full efficiency" (§3 OpSpec).
const baseRate = 1.0

// Progress computes one tick's contribution to an op's accumulated
// progress for a single (non-batched) worker, per §4.3:
//
//	progress = base_rate × skill_factor × (1 − corruption_personal) × throttle_factor
func Progress(w *model.Worker, op model.OpSpec, throttleFactor float64) float64 {
	skill := w.Skill.For(op.TargetClass)
	return baseRate * skill * (1 - w.PersonalCorruption) * throttleFactor
}

// gpuBatchMultiplier returns the throughput multiplier a GPU batch of
// jobsInBatch earns on the same op, capped both by the yard's configured
// BatchCap and by how many per-job VRAM allotments the yard's total VRAM
// could ever host (§4.3: "dynamic batch size = min(queued_matching,
// vram_budget/per_job_vram, cap)"). Every job already reserved its own
// VRAM when it started (scheduler.Select checks headroom,
// dispatcher.Activate reserves it); this multiplier only rewards
// sharing the yard's launch overhead, it does not re-check availability.
func gpuBatchMultiplier(jobsInBatch int, yard *model.Workyard, perJobVRAM uint64) float64 {
	cap := yard.GPU.BatchCap
	if cap <= 0 {
		cap = 1
	}
	size := jobsInBatch
	if perJobVRAM > 0 {
		if budget := int(yard.GPU.VRAMTotal / perJobVRAM); budget < cap {
			cap = budget
		}
	}
	if size > cap {
		size = cap
	}
	if size < 1 {
		size = 1
	}
	return float64(size)
}
