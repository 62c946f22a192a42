package kernel

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ftahirops/colonysim/evaluator"
	"github.com/ftahirops/colonysim/fault"
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/resources"
	"github.com/ftahirops/colonysim/scheduler"
	"github.com/ftahirops/colonysim/worldstore"
)

// decodeCRCPipeline builds the Decode->CRC pipeline used across the
// scenario fixtures: two CPU ops, four work units each, deadline 40
// ticks out, no base fault probability (the S1 "no sticky faults"
// expectation).
func decodeCRCPipeline() (model.PipelineSpec, map[model.OpSpecID]model.OpSpec) {
	decode := model.OpSpec{ID: "decode", Name: "Decode", TargetClass: model.ClassCPU, BaseWorkUnits: 4, Cost: model.CostProfile{PowerPerTick: 2, HeatPerTick: 1}}
	crc := model.OpSpec{ID: "crc", Name: "CRC", TargetClass: model.ClassCPU, BaseWorkUnits: 4, Cost: model.CostProfile{PowerPerTick: 1, HeatPerTick: 1}}
	pipe := model.PipelineSpec{
		ID:           "decode-crc",
		Name:         "Decode-CRC",
		Ops:          []model.OpSpecID{decode.ID, crc.ID},
		QoS:          model.QoSThroughput,
		BaseDeadline: 40,
	}
	return pipe, map[model.OpSpecID]model.OpSpec{decode.ID: decode, crc.ID: crc}
}

// newColony builds one CpuArray workyard with n full-skill, zero-corruption
// CPU workers and registers the Decode->CRC pipeline, mirroring S1's
// "1 CpuArray (cap 4 workers)" scenario config.
func newColony(n int) *worldstore.Store {
	s := worldstore.New()
	yard := &model.Workyard{
		ID:       "cpu-array-1",
		Kind:     model.KindCpuArray,
		Capacity: n,
		Thermal:  model.ThermalProfile{AmbientTemp: 20, MaxTemp: 90, ThrottleThresh: 70, CoolingCoeff: 0.1},
	}
	s.AddWorkyard(yard)
	for i := 0; i < n; i++ {
		w := &model.Worker{
			ID:    model.WorkerID(fmt.Sprintf("cpu-worker-%d", i)),
			Yard:  yard.ID,
			Class: model.ClassCPU,
			Skill: model.Skill{CPU: 1.0},
			Retry: model.RetryPolicy{MaxRetries: 3, BackoffTicks: 2},
		}
		s.AddWorker(w)
	}
	pipe, ops := decodeCRCPipeline()
	s.Pipelines[pipe.ID] = pipe
	for id, op := range ops {
		s.Ops[id] = op
	}
	s.Resources.PowerCapacity = 1000
	s.Resources.BandwidthCapacity = 32
	return s
}

// neverFireConditions keeps the win/loss evaluator quiet so a fixed-tick
// run finishes without an early Victory/Loss latch.
func neverFireConditions() evaluator.Conditions {
	return evaluator.Conditions{Threshold: 1e9}
}

func newTestKernel(seed uint64, n int) *Kernel {
	store := newColony(n)
	cfg := Config{
		Seed:           seed,
		Policy:         scheduler.FIFO,
		FaultParams:    fault.Params{},
		Corruption:     resources.DefaultCorruptionParams,
		CorruptionPull: 0.05,
		Victory:        neverFireConditions(),
		Loss:           neverFireConditions(),
		Window:         evaluator.DefaultWindow,
		ResearchRate:   0,
	}
	return New(cfg, store, zerolog.Nop(), nil, nil)
}
