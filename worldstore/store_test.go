package worldstore

import (
	"testing"

	"github.com/ftahirops/colonysim/model"
)

func TestSortedWorkerIDsDeterministic(t *testing.T) {
	s := New()
	s.AddWorkyard(&model.Workyard{ID: "yard-1", Capacity: 4})
	for _, id := range []model.WorkerID{"w-3", "w-1", "w-2"} {
		s.AddWorker(&model.Worker{ID: id, Yard: "yard-1", Class: model.ClassCPU})
	}
	got := s.SortedWorkerIDs()
	want := []model.WorkerID{"w-1", "w-2", "w-3"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestPendingJobsFiltersStatus(t *testing.T) {
	s := New()
	s.Jobs["j-1"] = &model.Job{ID: "j-1", Status: model.JobPending}
	s.Jobs["j-2"] = &model.Job{ID: "j-2", Status: model.JobRunning}
	s.Jobs["j-3"] = &model.Job{ID: "j-3", Status: model.JobPending}

	pending := s.PendingJobs()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", len(pending))
	}
	if pending[0].ID != "j-1" || pending[1].ID != "j-3" {
		t.Fatalf("expected stable ascending order, got %v, %v", pending[0].ID, pending[1].ID)
	}
}

func TestIdleWorkersOfClass(t *testing.T) {
	s := New()
	s.AddWorkyard(&model.Workyard{ID: "yard-1"})
	s.AddWorker(&model.Worker{ID: "w-1", Yard: "yard-1", Class: model.ClassCPU})
	s.AddWorker(&model.Worker{ID: "w-2", Yard: "yard-1", Class: model.ClassGPU})
	s.Workers["w-2"].State.Kind = model.WorkerRunning

	idle := s.IdleWorkersOfClass(model.ClassCPU)
	if len(idle) != 1 || idle[0].ID != "w-1" {
		t.Fatalf("expected only w-1 idle-CPU, got %v", idle)
	}
	if got := s.IdleWorkersOfClass(model.ClassGPU); len(got) != 0 {
		t.Fatalf("expected no idle GPU workers, got %v", got)
	}
}

func TestPruneExpiredMutationsDropsPastTick(t *testing.T) {
	s := New()
	s.AddMutation(model.Mutation{TargetOp: "a", ExpiresTick: 10})
	s.AddMutation(model.Mutation{TargetOp: "b", ExpiresTick: 0})
	s.AddMutation(model.Mutation{TargetOp: "c", ExpiresTick: 100})

	s.PruneExpiredMutations(50)

	if len(s.Mutations) != 2 {
		t.Fatalf("expected 2 surviving mutations (never-expiring + future), got %d", len(s.Mutations))
	}
	for _, m := range s.Mutations {
		if m.TargetOp == "a" {
			t.Fatalf("expected mutation targeting 'a' to have been pruned")
		}
	}
}

func TestHistoryRingBuffer(t *testing.T) {
	h := NewHistory(3)
	for i := uint64(1); i <= 5; i++ {
		h.Push(model.KPISample{Tick: i})
	}
	if h.Len() != 3 {
		t.Fatalf("expected capped length 3, got %d", h.Len())
	}
	latest, ok := h.Latest()
	if !ok || latest.Tick != 5 {
		t.Fatalf("expected latest tick 5, got %+v ok=%v", latest, ok)
	}
	win := h.Window(3)
	if len(win) != 3 || win[0].Tick != 3 || win[2].Tick != 5 {
		t.Fatalf("unexpected window contents: %+v", win)
	}
}
