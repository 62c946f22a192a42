package kernel

import (
	"testing"

	"github.com/ftahirops/colonysim/model"
)

// TestFirstLightStability covers S1: a CpuArray of 4 workers admitting
// one Decode->CRC job per tick for 1000 ticks under a fault-free,
// zero-corruption-growth configuration should stay healthy: the deadline
// hit rate stays high, the corruption field stays bounded, no worker goes
// sticky, and power draw never exceeds capacity.
func TestFirstLightStability(t *testing.T) {
	k := newTestKernel(42, 4)

	const ticks = 1000
	for i := 0; i < ticks; i++ {
		k.SubmitJob("decode-crc", 0)
		tick := k.Tick()

		sample, ok := k.History.Latest()
		if !ok {
			t.Fatalf("tick %d: no KPI sample recorded", tick)
		}
		if sample.PowerDeficitTick {
			t.Fatalf("tick %d: power draw exceeded capacity", tick)
		}
	}

	for _, id := range k.Store.SortedWorkerIDs() {
		w := k.Store.Workers[id]
		if w.State.Kind == model.WorkerQuarantined || w.State.StickyStreak > 0 {
			t.Fatalf("worker %s went sticky during a fault-free run (FaultParams zero)", id)
		}
	}

	final, ok := k.History.Latest()
	if !ok {
		t.Fatal("no final KPI sample")
	}
	if final.DeadlineHitRate < 0.98 {
		t.Fatalf("deadline hit rate = %f, want >= 0.98", final.DeadlineHitRate)
	}
	if final.CorruptionField < 0 || final.CorruptionField > 0.05 {
		t.Fatalf("corruption_field at tick %d = %f, want in [0.00, 0.05]", ticks, final.CorruptionField)
	}
}

// TestSchedulerFIFOOrdersByAdmission is a narrower companion to S2: with
// one worker and two jobs admitted on the same tick, FIFO starts exactly
// one of them, and since Select's FIFO ranking breaks equal admission
// ticks by job id, the lower-id job is the one that runs.
func TestSchedulerFIFOOrdersByAdmission(t *testing.T) {
	k := newTestKernel(1, 1) // a single worker forces strict ordering

	k.SubmitJob("decode-crc", 0)
	k.SubmitJob("decode-crc", 0)
	k.Tick() // admits both jobs pending; only one worker, so one starts

	var running, pending int
	for _, id := range k.Store.SortedJobIDs() {
		switch k.Store.Jobs[id].Status {
		case model.JobRunning:
			running++
		case model.JobPending:
			pending++
		}
	}
	if running != 1 || pending != 1 {
		t.Fatalf("with one worker and two admitted jobs, want 1 running/1 pending, got %d running/%d pending", running, pending)
	}
	first := k.Store.SortedJobIDs()[0]
	if k.Store.Jobs[first].Status != model.JobRunning {
		t.Fatalf("want lowest-id job %s running under FIFO, got status %v", first, k.Store.Jobs[first].Status)
	}
}
