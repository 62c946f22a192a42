package dispatcher

import (
	"golang.org/x/sync/errgroup"

	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/pipeline"
	"github.com/ftahirops/colonysim/resources"
	"github.com/ftahirops/colonysim/worldstore"
)

// Completion records one job-visible outcome of a dispatch pass, for the
// kernel to fold into the event log (spec.md §6 OpCompleted/JobCompleted).
type Completion struct {
	Job          model.JobID
	Op           model.OpSpecID
	PipelineDone bool
}

// gpuBatchKey groups running GPU jobs sharing a yard and op spec, the
// unit §4.3 batching is computed over.
type gpuBatchKey struct {
	yard model.WorkyardID
	op   model.OpSpecID
}

// jobPlan is the read-only outcome of scoring one job's progress this
// tick, computed in parallel across jobs since nothing in this phase
// touches shared mutable state — every read is scoped to the job's own
// assigned worker and yard. Applying a plan (job.Progress +=, and any
// resulting completion) still happens back on the calling goroutine, in
// store.SortedJobIDs order, so the tick's outcome never depends on
// goroutine scheduling (§5).
type jobPlan struct {
	applicable bool
	delta      float64
	worker     *model.Worker
	yard       *model.Workyard
	pipe       model.PipelineSpec
	opID       model.OpSpecID
	op         model.OpSpec
}

// Run advances every Running job by one tick (§4.3), applying GPU
// batching where it applies, and returns the completions observed so the
// caller can log and re-admit advanced jobs. Iteration is over
// store.SortedJobIDs so batch composition (and therefore every derived
// progress value) is independent of map order (§5).
func Run(store *worldstore.Store, mutations []model.Mutation, tick uint64) []Completion {
	batchSizes := computeBatchSizes(store)

	// Both factors are computed off the prior tick's committed draw
	// (resource post-update runs after dispatch, §4.1 stages 5 then 7),
	// so a deficit this tick throttles next tick's progress, never its
	// own — the same one-tick lag every other post-update feedback in
	// this loop already has (e.g. corruption_field -> personal_corruption).
	powerFactor, _ := resources.PowerThrottle(store.Resources.PowerDraw, store.Resources.PowerCapacity)
	bandwidthFactor, _ := resources.BandwidthThrottle(store.Resources.BandwidthUsed, store.Resources.BandwidthCapacity)

	jobIDs := store.SortedJobIDs()
	plans := make([]jobPlan, len(jobIDs))

	var g errgroup.Group
	for i, jid := range jobIDs {
		i, jid := i, jid
		g.Go(func() error {
			plans[i] = scoreJob(store, mutations, tick, jid, batchSizes, powerFactor, bandwidthFactor)
			return nil
		})
	}
	g.Wait() // scoreJob never errors; Wait only orders the merge below after every goroutine.

	var completions []Completion
	for i, jid := range jobIDs {
		plan := plans[i]
		if !plan.applicable {
			continue
		}
		job := store.Jobs[jid]
		job.Progress += plan.delta
		if job.Progress >= plan.op.BaseWorkUnits {
			completions = append(completions, completeOp(store, job, plan.worker, plan.yard, plan.pipe, plan.opID, plan.op))
		}
	}
	return completions
}

// scoreJob computes jid's progress delta for this tick without mutating
// anything, so callers can run it concurrently across jobs.
func scoreJob(store *worldstore.Store, mutations []model.Mutation, tick uint64, jid model.JobID, batchSizes map[gpuBatchKey]int, powerFactor, bandwidthFactor float64) jobPlan {
	job := store.Jobs[jid]
	if job.Status != model.JobRunning {
		return jobPlan{}
	}
	worker := store.Workers[job.Assigned]
	if worker == nil || worker.State.Kind != model.WorkerRunning {
		return jobPlan{} // faulted/backing off this tick; fault package owns that transition
	}
	yard := store.Workyards[worker.Yard]
	pipe := store.Pipelines[job.Pipeline]
	opID, ok := pipeline.CurrentOp(job, pipe)
	if !ok {
		return jobPlan{}
	}
	op := pipeline.EffectiveOpSpec(store.Ops[opID], mutations, tick)

	throttle := 1.0
	if yard != nil {
		throttle = yard.ThrottleFactor(resources.ThrottleFloor)
	}
	throttle *= powerFactor
	if op.TargetClass == model.ClassIO {
		throttle *= bandwidthFactor
	}
	mult := 1.0
	if yard != nil && yard.Kind == model.KindGpuFarm && op.TargetClass == model.ClassGPU {
		mult = gpuBatchMultiplier(batchSizes[gpuBatchKey{yard: yard.ID, op: opID}], yard, op.Cost.VRAMBytes)
	}

	return jobPlan{
		applicable: true,
		delta:      Progress(worker, op, throttle) * mult,
		worker:     worker,
		yard:       yard,
		pipe:       pipe,
		opID:       opID,
		op:         op,
	}
}

// computeBatchSizes counts Running jobs per (yard, op) among GPU-class
// workers, the "queued_matching" term of §4.3's batch-size formula.
func computeBatchSizes(store *worldstore.Store) map[gpuBatchKey]int {
	sizes := make(map[gpuBatchKey]int)
	for _, jid := range store.SortedJobIDs() {
		job := store.Jobs[jid]
		if job.Status != model.JobRunning {
			continue
		}
		worker := store.Workers[job.Assigned]
		if worker == nil || worker.Class != model.ClassGPU {
			continue
		}
		yard := store.Workyards[worker.Yard]
		if yard == nil || yard.Kind != model.KindGpuFarm {
			continue
		}
		pipe := store.Pipelines[job.Pipeline]
		opID, ok := pipeline.CurrentOp(job, pipe)
		if !ok {
			continue
		}
		sizes[gpuBatchKey{yard: yard.ID, op: opID}]++
	}
	return sizes
}

// completeOp frees resources reserved for opID, advances job to its next
// op (or Completed), and returns the worker to Idle so the scheduler can
// re-admit the job under the next op's requirements next tick (§4.3).
func completeOp(store *worldstore.Store, job *model.Job, worker *model.Worker, yard *model.Workyard, pipe model.PipelineSpec, opID model.OpSpecID, op model.OpSpec) Completion {
	if yard != nil && yard.Kind == model.KindGpuFarm {
		resources.ReleaseGPU(yard, op.Cost.VRAMBytes, op.Cost.PCIeBytes)
	}

	worker.State = model.WorkerState{Kind: model.WorkerIdle}
	job.Assigned = ""
	job.Progress = 0
	job.OpIndex++

	done := job.OpIndex >= len(pipe.Ops)
	if done {
		job.Status = model.JobCompleted
	} else {
		job.Status = model.JobPending
	}
	return Completion{Job: job.ID, Op: opID, PipelineDone: done}
}
