package fault

import (
	"testing"

	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/rng"
	"github.com/ftahirops/colonysim/worldstore"
)

func TestStickyProbGatedBelowThreshold(t *testing.T) {
	p := DefaultParams
	if got := StickyProb(0.9, p.StickyGateThresh-0.01, 0, p); got != 0 {
		t.Fatalf("expected zero sticky prob below gate threshold, got %v", got)
	}
}

func TestSoftProbGrowsWithCorruptionAndHeat(t *testing.T) {
	p := DefaultParams
	base := SoftProb(0.1, 0, 0, p)
	hot := SoftProb(0.1, 0.5, 10, p)
	if hot <= base {
		t.Fatalf("expected corruption/heat to increase soft fault prob: base=%v hot=%v", base, hot)
	}
}

func newYardWithWorker(store *worldstore.Store, faultProb float64) (*model.Workyard, *model.Worker, model.JobID) {
	yard := &model.Workyard{ID: "y1", Kind: model.KindCpuArray, Thermal: model.ThermalProfile{ThrottleThresh: 1000, MaxTemp: 2000}}
	store.AddWorkyard(yard)
	w := &model.Worker{ID: "w1", Yard: "y1", Class: model.ClassCPU, Retry: model.RetryPolicy{MaxRetries: 2, BackoffTicks: 3}, State: model.WorkerState{Kind: model.WorkerRunning, OpRef: "j1"}}
	store.AddWorker(w)
	store.Ops["op"] = model.OpSpec{ID: "op", BaseFaultProb: faultProb}
	store.Pipelines["pipe"] = model.PipelineSpec{ID: "pipe", Ops: []model.OpSpecID{"op"}}
	store.Jobs["j1"] = &model.Job{ID: "j1", Pipeline: "pipe", Status: model.JobRunning, Assigned: w.ID}
	return yard, w, "j1"
}

func TestSampleAlwaysFaultsAtProbabilityOne(t *testing.T) {
	store := worldstore.New()
	_, w, _ := newYardWithWorker(store, 1.0)
	stream := rng.NewStream(1, "test")

	Sample(store, stream, DefaultParams, 0)

	if w.State.Kind != model.WorkerFaulted {
		t.Fatalf("expected worker faulted at p=1, got %v", w.State.Kind)
	}
	if w.State.BackoffUntil == 0 {
		t.Fatalf("expected backoff timer armed")
	}
}

func TestSampleNeverFaultsAtProbabilityZero(t *testing.T) {
	store := worldstore.New()
	_, w, _ := newYardWithWorker(store, 0)
	stream := rng.NewStream(1, "test")

	for i := 0; i < 50; i++ {
		Sample(store, stream, DefaultParams, uint64(i))
	}

	if w.State.Kind != model.WorkerRunning {
		t.Fatalf("expected worker to remain Running at p=0, got %v", w.State.Kind)
	}
}

func TestBackoffResumesRunningWhileRetriesRemain(t *testing.T) {
	store := worldstore.New()
	_, w, jid := newYardWithWorker(store, 0)
	w.State.Kind = model.WorkerFaulted
	w.State.FaultKind = model.FaultSoft
	w.State.RetriesLeft = 1
	w.State.BackoffUntil = 5

	Backoff(store, 5)

	if w.State.Kind != model.WorkerRunning {
		t.Fatalf("expected worker resumed Running after elapsed backoff, got %v", w.State.Kind)
	}
	if w.State.RetriesLeft != 0 {
		t.Fatalf("expected one retry consumed, got %d", w.State.RetriesLeft)
	}
	if store.Jobs[jid].Status != model.JobRunning {
		t.Fatalf("expected job to remain Running across a resumed retry")
	}
}

func TestBackoffRequeuesJobWhenSoftRetriesExhausted(t *testing.T) {
	store := worldstore.New()
	_, w, jid := newYardWithWorker(store, 0)
	w.State.Kind = model.WorkerFaulted
	w.State.FaultKind = model.FaultSoft
	w.State.RetriesLeft = 0
	w.State.BackoffUntil = 5

	Backoff(store, 5)

	if w.State.Kind != model.WorkerIdle {
		t.Fatalf("expected worker Idle after exhausting soft retries, got %v", w.State.Kind)
	}
	j := store.Jobs[jid]
	if j.Status != model.JobPending || j.Assigned != "" {
		t.Fatalf("expected job requeued Pending and unassigned, got status=%v assigned=%v", j.Status, j.Assigned)
	}
}

func TestBackoffQuarantinesWorkerWhenStickyRetriesExhausted(t *testing.T) {
	store := worldstore.New()
	_, w, _ := newYardWithWorker(store, 0)
	w.State.Kind = model.WorkerFaulted
	w.State.FaultKind = model.FaultSticky
	w.State.RetriesLeft = 0
	w.State.BackoffUntil = 5

	Backoff(store, 5)

	if w.State.Kind != model.WorkerQuarantined {
		t.Fatalf("expected worker Quarantined after exhausting sticky retries, got %v", w.State.Kind)
	}
}

func TestMaintainReturnsQuarantinedWorkerToIdle(t *testing.T) {
	w := &model.Worker{State: model.WorkerState{Kind: model.WorkerQuarantined}}
	Maintain(w)
	if w.State.Kind != model.WorkerIdle {
		t.Fatalf("expected Idle after maintenance, got %v", w.State.Kind)
	}
}

func TestBackoffTicksExponentialDoubles(t *testing.T) {
	policy := model.RetryPolicy{BackoffTicks: 2, Exponential: true}
	if got := BackoffTicks(policy, 0); got != 2 {
		t.Fatalf("attempt 0: got %d want 2", got)
	}
	if got := BackoffTicks(policy, 3); got != 16 {
		t.Fatalf("attempt 3: got %d want 16", got)
	}
}

func TestBackoffTicksLinearIsConstant(t *testing.T) {
	policy := model.RetryPolicy{BackoffTicks: 5, Exponential: false}
	if got := BackoffTicks(policy, 10); got != 5 {
		t.Fatalf("expected constant backoff, got %d", got)
	}
}

// TestSampleCascadesToLowestJobIDPeer covers the S4 cascading-fault
// scenario shape: a sticky fault at corruption_field high enough to gate
// sticky sampling on, with PropagateProb driven to 1, must propagate a
// soft fault to the Running peer in the same yard holding the
// lowest-id job (w2, "j-lo"), never to w0, whose worker id sorts first
// but whose job id ("j-zz") is higher.
func TestSampleCascadesToLowestJobIDPeer(t *testing.T) {
	store := worldstore.New()
	yard := &model.Workyard{ID: "y1", Kind: model.KindCpuArray, Thermal: model.ThermalProfile{ThrottleThresh: 1000, MaxTemp: 2000}}
	store.AddWorkyard(yard)
	store.Ops["op"] = model.OpSpec{ID: "op", BaseFaultProb: 1.0}
	store.Pipelines["pipe"] = model.PipelineSpec{ID: "pipe", Ops: []model.OpSpecID{"op"}}

	w1 := &model.Worker{ID: "w1", Yard: "y1", Class: model.ClassCPU, Retry: model.RetryPolicy{MaxRetries: 2, BackoffTicks: 3}, State: model.WorkerState{Kind: model.WorkerRunning, OpRef: "j-hi"}}
	w2 := &model.Worker{ID: "w2", Yard: "y1", Class: model.ClassCPU, Retry: model.RetryPolicy{MaxRetries: 2, BackoffTicks: 3}, State: model.WorkerState{Kind: model.WorkerRunning, OpRef: "j-lo"}}
	store.AddWorker(w1)
	store.AddWorker(w2)
	store.Jobs["j-hi"] = &model.Job{ID: "j-hi", Pipeline: "pipe", Status: model.JobRunning, Assigned: w1.ID}
	store.Jobs["j-lo"] = &model.Job{ID: "j-lo", Pipeline: "pipe", Status: model.JobRunning, Assigned: w2.ID}

	// w0 runs a zero-probability op, so it never faults on its own and
	// stays an eligible peer the cascade has to pass over.
	store.Ops["op-safe"] = model.OpSpec{ID: "op-safe"}
	store.Pipelines["pipe-safe"] = model.PipelineSpec{ID: "pipe-safe", Ops: []model.OpSpecID{"op-safe"}}
	w0 := &model.Worker{ID: "w0", Yard: "y1", Class: model.ClassCPU, Retry: model.RetryPolicy{MaxRetries: 2, BackoffTicks: 3}, State: model.WorkerState{Kind: model.WorkerRunning, OpRef: "j-zz"}}
	store.AddWorker(w0)
	store.Jobs["j-zz"] = &model.Job{ID: "j-zz", Pipeline: "pipe-safe", Status: model.JobRunning, Assigned: w0.ID}
	store.Resources.CorruptionField = 0.8

	p := DefaultParams
	p.StickyGateThresh = 0
	p.PropagateBaseProb = 1.0
	p.PropagateSlope = 0

	stream := rng.NewStream(7, "test")
	Sample(store, stream, p, 100)

	if w1.State.Kind != model.WorkerFaulted || w1.State.FaultKind != model.FaultSticky {
		t.Fatalf("expected w1 sticky faulted, got kind=%v fault=%v", w1.State.Kind, w1.State.FaultKind)
	}
	if w2.State.Kind != model.WorkerFaulted || w2.State.FaultKind != model.FaultSoft {
		t.Fatalf("expected cascade to land a soft fault on w2 (lowest job id), got kind=%v fault=%v", w2.State.Kind, w2.State.FaultKind)
	}
	if w0.State.Kind != model.WorkerRunning {
		t.Fatalf("expected w0 (higher job id j-zz) left Running, got kind=%v", w0.State.Kind)
	}
}

// TestSampleNeverLeavesWorkerBothRunningAndFaulted covers P5: a worker
// transitioned by Sample is never left Running while Faulted, and its
// job stays Running/Assigned rather than orphaned mid-fault.
func TestSampleNeverLeavesWorkerBothRunningAndFaulted(t *testing.T) {
	store := worldstore.New()
	_, w, jid := newYardWithWorker(store, 1.0)
	stream := rng.NewStream(3, "test")

	Sample(store, stream, DefaultParams, 0)

	if w.State.Kind == model.WorkerRunning && w.State.FaultKind != model.FaultNone {
		t.Fatalf("worker must not be Running with a stale fault kind set")
	}
	if w.State.Kind != model.WorkerFaulted {
		t.Fatalf("expected worker faulted, got %v", w.State.Kind)
	}
	job := store.Jobs[jid]
	if job.Status != model.JobRunning || job.Assigned != w.ID {
		t.Fatalf("expected job to remain Running and assigned to the faulted worker pending backoff, got status=%v assigned=%v", job.Status, job.Assigned)
	}
}
