package scheduler

import (
	"sort"

	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/pipeline"
	"github.com/ftahirops/colonysim/resources"
	"github.com/ftahirops/colonysim/worldstore"
)

// Activation is one (job, worker) pairing the scheduler has chosen to
// start this tick. The dispatcher applies it; scheduler itself never
// mutates store (§4.2: "policy must be a pure function of the pre-stage
// snapshot").
type Activation struct {
	Job    model.JobID
	Worker model.WorkerID
	Yard   model.WorkyardID
}

// Select ranks Pending jobs by policy, then greedily pairs each ranked
// job with the first eligible Idle worker of its current op's target
// class, subject to admission control (aggregate power_draw and, for
// GpuFarm yards, VRAM/PCIe headroom). Running totals are tracked locally
// across the pass so that activations within the same tick cannot
// collectively overshoot capacity (I2), without mutating store.
func Select(store *worldstore.Store, policy Policy, mutations []model.Mutation, tick uint64) []Activation {
	ranked := rank(store.PendingJobs(), store, mutations, tick, policy)

	powerDraw := resources.PowerDraw(store, func(jid model.JobID) float64 {
		j := store.Jobs[jid]
		pipe := store.Pipelines[j.Pipeline]
		opID, ok := pipeline.CurrentOp(j, pipe)
		if !ok {
			return 0
		}
		return store.Ops[opID].Cost.PowerPerTick
	})

	usedWorkers := make(map[model.WorkerID]bool)
	vramUsed := make(map[model.WorkyardID]uint64)
	pcieUsed := make(map[model.WorkyardID]uint64)

	var out []Activation
	for _, job := range ranked {
		pipe := store.Pipelines[job.Pipeline]
		opID, ok := pipeline.CurrentOp(job, pipe)
		if !ok {
			continue
		}
		op := pipeline.EffectiveOpSpec(store.Ops[opID], mutations, tick)

		chosen := pickWorker(store, op, usedWorkers, vramUsed, pcieUsed, powerDraw)
		if chosen == nil {
			continue // admission deferred, not an error (§4.2)
		}

		usedWorkers[chosen.ID] = true
		powerDraw += op.Cost.PowerPerTick
		if yard := store.Workyards[chosen.Yard]; yard != nil && yard.Kind == model.KindGpuFarm {
			vramUsed[yard.ID] += op.Cost.VRAMBytes
			pcieUsed[yard.ID] += op.Cost.PCIeBytes
		}
		out = append(out, Activation{Job: job.ID, Worker: chosen.ID, Yard: chosen.Yard})
	}
	return out
}

// pickWorker returns the lowest-id Idle worker of op's target class whose
// yard has enough remaining headroom for op, or nil if none qualifies.
func pickWorker(store *worldstore.Store, op model.OpSpec, usedWorkers map[model.WorkerID]bool, vramUsed, pcieUsed map[model.WorkyardID]uint64, powerDraw float64) *model.Worker {
	if store.Resources.PowerCapacity > 0 && powerDraw+op.Cost.PowerPerTick > store.Resources.PowerCapacity {
		return nil
	}
	for _, w := range store.IdleWorkersOfClass(op.TargetClass) {
		if usedWorkers[w.ID] {
			continue
		}
		yard := store.Workyards[w.Yard]
		if yard == nil {
			continue
		}
		if yard.Kind == model.KindGpuFarm {
			freeVRAM := yard.GPU.VRAMFree - vramUsed[yard.ID]
			freePCIe := yard.GPU.PCIeBWTotal - yard.GPU.PCIeBWInUse - pcieUsed[yard.ID]
			if op.Cost.VRAMBytes > freeVRAM || op.Cost.PCIeBytes > freePCIe {
				continue
			}
		}
		return w
	}
	return nil
}

// rank orders Pending jobs per policy. Ties fall back to store.PendingJobs's
// ascending-by-id base order, which sort.SliceStable preserves — giving
// every policy a deterministic final tie-break by job id (I5) without
// repeating that comparison in every branch.
func rank(jobs []*model.Job, store *worldstore.Store, mutations []model.Mutation, tick uint64, policy Policy) []*model.Job {
	out := append([]*model.Job(nil), jobs...)
	switch policy {
	case SJF:
		sort.SliceStable(out, func(i, j int) bool {
			wi, wj := remainingWork(out[i], store, mutations, tick), remainingWork(out[j], store, mutations, tick)
			if wi != wj {
				return wi < wj
			}
			return out[i].AdmissionTick < out[j].AdmissionTick
		})
	case EDF:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].DeadlineTick != out[j].DeadlineTick {
				return out[i].DeadlineTick < out[j].DeadlineTick
			}
			return remainingWork(out[i], store, mutations, tick) < remainingWork(out[j], store, mutations, tick)
		})
	default: // FIFO
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].AdmissionTick != out[j].AdmissionTick {
				return out[i].AdmissionTick < out[j].AdmissionTick
			}
			return out[i].ID < out[j].ID
		})
	}
	return out
}

func remainingWork(j *model.Job, store *worldstore.Store, mutations []model.Mutation, tick uint64) float64 {
	pipe := store.Pipelines[j.Pipeline]
	return pipeline.RemainingWorkUnits(j, pipe, store.Ops, mutations, tick)
}
