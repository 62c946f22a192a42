package dispatcher

import (
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/pipeline"
	"github.com/ftahirops/colonysim/resources"
	"github.com/ftahirops/colonysim/scheduler"
	"github.com/ftahirops/colonysim/worldstore"
)

// Activate applies the scheduler's chosen (job, worker) pairings to the
// store: the worker starts Running its job's current op, and (on a
// GpuFarm) the op's VRAM/PCIe are reserved. Scheduler.Select only
// computes the pairing against a read-only snapshot; this is the single
// place the pairing becomes committed state (§4.2).
func Activate(store *worldstore.Store, acts []scheduler.Activation, mutations []model.Mutation, tick uint64) {
	for _, a := range acts {
		job := store.Jobs[a.Job]
		worker := store.Workers[a.Worker]
		if job == nil || worker == nil {
			continue
		}

		job.Status = model.JobRunning
		job.Assigned = worker.ID
		job.Progress = 0

		worker.State = model.WorkerState{Kind: model.WorkerRunning, OpRef: job.ID, Attempt: worker.State.Attempt}

		if yard := store.Workyards[a.Yard]; yard != nil && yard.Kind == model.KindGpuFarm {
			pipe := store.Pipelines[job.Pipeline]
			if opID, ok := pipeline.CurrentOp(job, pipe); ok {
				op := store.Ops[opID]
				resources.ReserveGPU(yard, op.Cost.VRAMBytes, op.Cost.PCIeBytes)
			}
		}
	}
}
