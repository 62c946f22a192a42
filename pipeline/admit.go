package pipeline

import "github.com/ftahirops/colonysim/model"

// NewJob constructs a Pending job for admission at the given tick, with
// its deadline computed from the pipeline's (possibly mutated) base
// deadline (spec.md §3 Job.deadline_tick).
func NewJob(id model.JobID, pipe model.PipelineSpec, admissionTick uint64, priority int) model.Job {
	return model.Job{
		ID:            id,
		Pipeline:      pipe.ID,
		AdmissionTick: admissionTick,
		DeadlineTick:  admissionTick + uint64(pipe.BaseDeadline),
		Priority:      priority,
		Status:        model.JobPending,
		Attempts:      make([]int, len(pipe.Ops)),
	}
}

// RemainingWorkUnits sums effective work units for every op from the
// job's current index to the end of the pipeline (used by SJF ranking and
// by EDF's tie-break on equal deadlines).
func RemainingWorkUnits(j *model.Job, pipe model.PipelineSpec, ops map[model.OpSpecID]model.OpSpec, mutations []model.Mutation, tick uint64) float64 {
	var total float64
	for i := j.OpIndex; i < len(pipe.Ops); i++ {
		base := ops[pipe.Ops[i]]
		eff := EffectiveOpSpec(base, mutations, tick)
		total += eff.BaseWorkUnits
	}
	return total
}

// CurrentOp returns the OpSpecID the job is (or would be) running, and ok
// = false when the job has already advanced past the pipeline's last op.
func CurrentOp(j *model.Job, pipe model.PipelineSpec) (model.OpSpecID, bool) {
	if j.OpIndex < 0 || j.OpIndex >= len(pipe.Ops) {
		return "", false
	}
	return pipe.Ops[j.OpIndex], true
}
