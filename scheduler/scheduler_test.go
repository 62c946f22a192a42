package scheduler

import (
	"testing"

	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/worldstore"
)

func newFixtureStore() *worldstore.Store {
	s := worldstore.New()
	s.Resources.PowerCapacity = 1000
	s.Ops["decode"] = model.OpSpec{ID: "decode", TargetClass: model.ClassCPU, BaseWorkUnits: 4, Cost: model.CostProfile{PowerPerTick: 10}}
	s.Pipelines["p1"] = model.PipelineSpec{ID: "p1", Ops: []model.OpSpecID{"decode"}, BaseDeadline: 20}

	yard := &model.Workyard{ID: "y1", Kind: model.KindCpuArray, Capacity: 4}
	s.AddWorkyard(yard)
	s.AddWorker(&model.Worker{ID: "w1", Yard: "y1", Class: model.ClassCPU, State: model.WorkerState{Kind: model.WorkerIdle}})
	s.AddWorker(&model.Worker{ID: "w2", Yard: "y1", Class: model.ClassCPU, State: model.WorkerState{Kind: model.WorkerIdle}})
	return s
}

func TestFIFOOrdersByAdmissionTickThenID(t *testing.T) {
	s := newFixtureStore()
	s.Jobs["j2"] = &model.Job{ID: "j2", Pipeline: "p1", AdmissionTick: 5, Status: model.JobPending}
	s.Jobs["j1"] = &model.Job{ID: "j1", Pipeline: "p1", AdmissionTick: 1, Status: model.JobPending}

	acts := Select(s, FIFO, nil, 0)
	if len(acts) != 2 {
		t.Fatalf("expected both jobs activated, got %d", len(acts))
	}
	if acts[0].Job != "j1" {
		t.Fatalf("expected j1 (earlier admission) scheduled first, got %v", acts[0].Job)
	}
}

func TestSJFPrefersSmallerRemainingWork(t *testing.T) {
	s := newFixtureStore()
	s.Ops["heavy"] = model.OpSpec{ID: "heavy", TargetClass: model.ClassCPU, BaseWorkUnits: 32, Cost: model.CostProfile{PowerPerTick: 10}}
	s.Pipelines["pbig"] = model.PipelineSpec{ID: "pbig", Ops: []model.OpSpecID{"heavy"}, BaseDeadline: 50}

	s.Jobs["big"] = &model.Job{ID: "big", Pipeline: "pbig", AdmissionTick: 0, Status: model.JobPending}
	s.Jobs["small"] = &model.Job{ID: "small", Pipeline: "p1", AdmissionTick: 1, Status: model.JobPending}

	acts := Select(s, SJF, nil, 0)
	if acts[0].Job != "small" {
		t.Fatalf("expected smaller job scheduled first under SJF, got %v", acts[0].Job)
	}
}

func TestEDFPrefersEarlierDeadline(t *testing.T) {
	s := newFixtureStore()
	s.Jobs["late"] = &model.Job{ID: "late", Pipeline: "p1", AdmissionTick: 0, DeadlineTick: 100, Status: model.JobPending}
	s.Jobs["soon"] = &model.Job{ID: "soon", Pipeline: "p1", AdmissionTick: 0, DeadlineTick: 10, Status: model.JobPending}

	acts := Select(s, EDF, nil, 0)
	if acts[0].Job != "soon" {
		t.Fatalf("expected earlier deadline scheduled first under EDF, got %v", acts[0].Job)
	}
}

func TestAdmissionDeferredOnPowerCapacity(t *testing.T) {
	s := newFixtureStore()
	s.Resources.PowerCapacity = 15 // only one job's 10W fits
	s.Jobs["j1"] = &model.Job{ID: "j1", Pipeline: "p1", AdmissionTick: 0, Status: model.JobPending}
	s.Jobs["j2"] = &model.Job{ID: "j2", Pipeline: "p1", AdmissionTick: 1, Status: model.JobPending}

	acts := Select(s, FIFO, nil, 0)
	if len(acts) != 1 {
		t.Fatalf("expected exactly one admission under tight power cap, got %d", len(acts))
	}
	if acts[0].Job != "j1" {
		t.Fatalf("expected the earlier job to win the available headroom, got %v", acts[0].Job)
	}
}

func TestNoIdleWorkerOfMatchingClassYieldsNoActivation(t *testing.T) {
	s := newFixtureStore()
	s.Ops["gpuop"] = model.OpSpec{ID: "gpuop", TargetClass: model.ClassGPU, BaseWorkUnits: 4}
	s.Pipelines["pgpu"] = model.PipelineSpec{ID: "pgpu", Ops: []model.OpSpecID{"gpuop"}, BaseDeadline: 20}
	s.Jobs["j1"] = &model.Job{ID: "j1", Pipeline: "pgpu", AdmissionTick: 0, Status: model.JobPending}

	acts := Select(s, FIFO, nil, 0)
	if len(acts) != 0 {
		t.Fatalf("expected no activation with no GPU-class worker available, got %d", len(acts))
	}
}

func TestGpuFarmVRAMAdmissionControl(t *testing.T) {
	s := newFixtureStore()
	gy := &model.Workyard{ID: "gy", Kind: model.KindGpuFarm, Capacity: 2, GPU: model.GPUResources{VRAMTotal: 1024, VRAMFree: 1024, PCIeBWTotal: 16}}
	s.AddWorkyard(gy)
	s.AddWorker(&model.Worker{ID: "gw1", Yard: "gy", Class: model.ClassGPU, State: model.WorkerState{Kind: model.WorkerIdle}})

	s.Ops["gpuop"] = model.OpSpec{ID: "gpuop", TargetClass: model.ClassGPU, BaseWorkUnits: 4, Cost: model.CostProfile{VRAMBytes: 2048}}
	s.Pipelines["pgpu"] = model.PipelineSpec{ID: "pgpu", Ops: []model.OpSpecID{"gpuop"}, BaseDeadline: 20}
	s.Jobs["j1"] = &model.Job{ID: "j1", Pipeline: "pgpu", AdmissionTick: 0, Status: model.JobPending}

	acts := Select(s, FIFO, nil, 0)
	if len(acts) != 0 {
		t.Fatalf("expected admission deferred when op needs more VRAM than the yard has, got %d", len(acts))
	}
}
