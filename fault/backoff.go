package fault

import (
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/worldstore"
)

// BackoffTicks returns how long a worker must wait before its next retry,
// given its attempt count so far (§4.4: "backoff may be linear or
// exponential per config").
func BackoffTicks(retry model.RetryPolicy, attempt int) int {
	if !retry.Exponential {
		return retry.BackoffTicks
	}
	ticks := retry.BackoffTicks
	for i := 0; i < attempt && i < 30; i++ { // cap the shift to avoid overflow on pathological configs
		ticks *= 2
	}
	return ticks
}

// ArmBackoff schedules the tick at which a freshly Faulted worker may
// retry, using its current Attempt count.
func ArmBackoff(w *model.Worker, tick uint64) {
	w.State.BackoffUntil = tick + uint64(BackoffTicks(w.Retry, w.State.Attempt))
}

// Backoff runs the §4.1 "backoff" stage: every Faulted worker whose
// backoff has elapsed either resumes its job (retries remaining) or
// resolves into Idle/Quarantined (retries exhausted), per §4.4's state
// machine. Iteration is in ascending worker id order (I5).
func Backoff(store *worldstore.Store, tick uint64) {
	for _, wid := range store.SortedWorkerIDs() {
		w := store.Workers[wid]
		if w.State.Kind != model.WorkerFaulted {
			continue
		}
		if tick < w.State.BackoffUntil {
			continue
		}

		if w.State.RetriesLeft > 0 {
			w.State.RetriesLeft--
			w.State.Kind = model.WorkerRunning
			continue
		}

		// Retries exhausted: the job is always requeued so another worker
		// can pick it up (§4.4 tracks retries on the job's per-op Attempts,
		// not as a terminal job outcome) — only the worker's own fate
		// differs between a soft fault (back to Idle) and a sticky one
		// (Quarantined, needs a maintenance event first).
		job := store.Jobs[w.State.OpRef]
		if job != nil {
			if job.OpIndex < len(job.Attempts) {
				job.Attempts[job.OpIndex]++
			}
			job.Status = model.JobPending
			job.Assigned = ""
			job.Progress = 0
		}
		if w.State.FaultKind == model.FaultSticky {
			w.State.Kind = model.WorkerQuarantined
		} else {
			w.State.Kind = model.WorkerIdle
		}
		w.State.OpRef = ""
		w.State.FaultKind = model.FaultNone
	}
}

// Maintain transitions a Quarantined worker back to Idle on a maintenance
// event (§4.4: "Quarantined --maintenance event--> Idle").
func Maintain(w *model.Worker) {
	if w.State.Kind == model.WorkerQuarantined {
		w.State = model.WorkerState{Kind: model.WorkerIdle}
	}
}
