// Package fault implements the per-worker fault state machine (spec.md
// §4.4): probability sampling for soft/sticky faults, cascading
// propagation to a peer, and backoff-driven recovery. It is grounded on
// the teacher's health-transition shape in engine.classifyHealth (state
// advances only on a sampled/measured condition, never spontaneously).
package fault

import (
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/rng"
	"github.com/ftahirops/colonysim/worldstore"
)

// Params are the tunable coefficients of §4.4's probability model.
type Params struct {
	Alpha              float64 // corruption_field coefficient on p_soft
	Beta               float64 // local_temp_excess coefficient on p_soft
	StickyAlpha        float64 // corruption_field coefficient on p_sticky
	StickyBeta         float64 // local_temp_excess coefficient on p_sticky
	StickyGateThresh   float64 // corruption_field must be >= this for any p_sticky
	PropagateBaseProb  float64 // propagate_prob(corruption_field) intercept
	PropagateSlope     float64 // propagate_prob(corruption_field) slope
}

// DefaultParams are conservative coefficients keeping S1's fault-free
// 1000-tick run free of sticky faults at corruption_field ≤ 0.05.
var DefaultParams = Params{
	Alpha: 0.5, Beta: 0.3,
	StickyAlpha: 1.0, StickyBeta: 0.6,
	StickyGateThresh:  0.15,
	PropagateBaseProb: 0.1, PropagateSlope: 0.4,
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SoftProb computes p_soft_effective (§4.4).
func SoftProb(base, corruptionField, localTempExcess float64, p Params) float64 {
	return clamp01(base * (1 + p.Alpha*corruptionField) * (1 + p.Beta*localTempExcess))
}

// StickyProb computes p_sticky_effective, gated to zero below the
// corruption floor (§4.4: "a floor gated by corruption_field >= threshold").
func StickyProb(base, corruptionField, localTempExcess float64, p Params) float64 {
	if corruptionField < p.StickyGateThresh {
		return 0
	}
	return clamp01(base * (1 + p.StickyAlpha*corruptionField) * (1 + p.StickyBeta*localTempExcess))
}

// PropagateProb is the probability a sticky fault cascades to one peer.
func PropagateProb(corruptionField float64, p Params) float64 {
	return clamp01(p.PropagateBaseProb + p.PropagateSlope*corruptionField)
}

func localTempExcess(y *model.Workyard) float64 {
	if y == nil {
		return 0
	}
	excess := y.LocalTemp - y.Thermal.ThrottleThresh
	if excess < 0 {
		return 0
	}
	return excess
}

// Sample runs the §4.4 fault sampling stage over every Running worker, in
// ascending worker id order for determinism (I5). Faults transition the
// worker to Faulted and leave its job Running (still Assigned) until
// backoff recovers or exhausts it — see Backoff.
func Sample(store *worldstore.Store, stream *rng.Stream, p Params, tick uint64) {
	for _, wid := range store.SortedWorkerIDs() {
		w := store.Workers[wid]
		if w.State.Kind != model.WorkerRunning {
			continue
		}
		job := store.Jobs[w.State.OpRef]
		op := currentOp(store, job)

		yard := store.Workyards[w.Yard]
		excess := localTempExcess(yard)
		cf := store.Resources.CorruptionField

		pSticky := StickyProb(op.BaseFaultProb, cf, excess, p)
		pSoft := SoftProb(op.BaseFaultProb, cf, excess, p)

		switch {
		case stream.Bool(pSticky):
			Fail(w, model.FaultSticky, tick)
			if stream.Bool(PropagateProb(cf, p)) {
				if peer := lowestJobIDPeer(store, w); peer != nil {
					Fail(peer, model.FaultSoft, tick)
				}
			}
		case stream.Bool(pSoft):
			Fail(w, model.FaultSoft, tick)
		}
	}
}

func currentOp(store *worldstore.Store, job *model.Job) model.OpSpec {
	if job == nil {
		return model.OpSpec{}
	}
	pipe := store.Pipelines[job.Pipeline]
	if job.OpIndex < 0 || job.OpIndex >= len(pipe.Ops) {
		return model.OpSpec{}
	}
	return store.Ops[pipe.Ops[job.OpIndex]]
}

// Fail transitions a Running worker into Faulted(kind), arming its retry
// budget and backoff timer from the worker's own retry policy (§4.4).
// Exported so callers outside this package (the sandbox dispatch stage,
// when a custom-executor module signals Soft/StickyFault directly) can
// drive the same transition the probability sampler uses.
func Fail(w *model.Worker, kind model.FaultKind, tick uint64) {
	w.State.Kind = model.WorkerFaulted
	w.State.FaultKind = kind
	w.State.RetriesLeft = w.Retry.MaxRetries
	w.State.Attempt++
	if kind == model.FaultSticky {
		w.State.StickyStreak++
	}
	ArmBackoff(w, tick)
}

// lowestJobIDPeer returns the Running worker, other than w, in the same
// yard with the lowest-id assigned job — the deterministic cascade target
// (§4.4: "the chosen target is the lowest job id among eligible peers").
func lowestJobIDPeer(store *worldstore.Store, w *model.Worker) *model.Worker {
	var best *model.Worker
	for _, wid := range store.WorkersInYard(w.Yard) {
		if wid == w.ID {
			continue
		}
		cand := store.Workers[wid]
		if cand.State.Kind != model.WorkerRunning {
			continue
		}
		if best == nil || cand.State.OpRef < best.State.OpRef {
			best = cand
		}
	}
	return best
}
