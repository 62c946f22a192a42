package kernel

import (
	"github.com/ftahirops/colonysim/eventlog"
	"github.com/ftahirops/colonysim/fault"
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/pipeline"
	"github.com/ftahirops/colonysim/research"
	"github.com/ftahirops/colonysim/rng"
	"github.com/ftahirops/colonysim/sandbox/binhost"
	"github.com/ftahirops/colonysim/sandbox/scripthost"
)

// stageSandbox runs the §4.1 stage-10 sandbox dispatch: custom-executor
// ops get one binhost.Run call each, and every registered scripted
// callback for this tick's kinds (on_tick always; on_fault/on_swan when
// those events occurred) gets dispatched in registration order.
func (k *Kernel) stageSandbox(tick uint64, sample model.KPISample, newlyFaulted []model.WorkerID, swanFired *research.BlackSwan) {
	k.dispatchCustomExecutors(tick)

	k.scripts.ResetTick()
	k.dispatchCallbacks("on_tick", tick, sample)
	if len(newlyFaulted) > 0 {
		k.dispatchCallbacks("on_fault", tick, sample)
	}
	if swanFired != nil {
		k.dispatchCallbacks("on_swan", tick, sample)
	}
}

// dispatchCustomExecutors invokes the registered binary module for every
// Running job whose current op names one, interpreting the module's
// Status as an immediate fault signal independent of this tick's
// probability-sampled fault pass (§4.8: "a module may itself report a
// soft or sticky fault").
func (k *Kernel) dispatchCustomExecutors(tick uint64) {
	s := k.Store
	for _, jid := range s.SortedJobIDs() {
		job := s.Jobs[jid]
		if job.Status != model.JobRunning {
			continue
		}
		pipe := s.Pipelines[job.Pipeline]
		opID, ok := pipeline.CurrentOp(job, pipe)
		if !ok {
			continue
		}
		op := s.Ops[opID]
		if op.CustomExecutor == "" {
			continue
		}
		mod, ok := k.binModules[opID]
		if !ok {
			continue
		}
		worker := s.Workers[job.Assigned]
		if worker == nil {
			continue
		}

		callTag := rng.SandboxCallTag(string(worker.ID), string(job.ID), tick)
		callStream := k.RNG.Stream(callTag)

		ctx := binhost.OpContext{
			Tick:         tick,
			WorkerID:     string(worker.ID),
			JobID:        string(job.ID),
			PipelineID:   string(job.Pipeline),
			OpIndex:      job.OpIndex,
			PFault:       float32(op.BaseFaultProb),
			RNGSeed:      callStream.Uint64(),
			Capabilities: mod.Capabilities,
		}
		result, err := binhost.Run(mod.Module, ctx, nil, mod.OutputCap, mod.FuelBudget, mod.MemoryPages, binhost.Imports{
			Log: func(msg string) { k.Log.Info().Str("op", string(opID)).Msg(msg) },
			RNG: callStream.Uint64,
		})
		if err != nil {
			k.Log.Error().Err(err).Str("op", string(opID)).Uint64("tick", tick).Msg("binary module run failed")
			k.appendEvent(eventlog.KindSandboxFault, []byte(opID))
			continue
		}
		switch result.Status {
		case binhost.StatusSoftFault:
			fault.Fail(worker, model.FaultSoft, tick)
			k.appendEvent(eventlog.KindSandboxFault, []byte(opID))
		case binhost.StatusStickyFault:
			fault.Fail(worker, model.FaultSticky, tick)
			k.appendEvent(eventlog.KindSandboxFault, []byte(opID))
		case binhost.StatusSuccess:
		default:
			k.appendEvent(eventlog.KindSandboxFault, []byte(opID))
		}
	}
}

// dispatchCallbacks runs every registered callback for kind, each in its
// own fresh Runtime so one callback's globals never leak into the next
// (§5 "no shared mutable memory between sandbox and kernel").
func (k *Kernel) dispatchCallbacks(kind string, tick uint64, sample model.KPISample) {
	for _, cb := range k.scripts.ForKind(kind) {
		cb := cb
		ctx := scripthost.HostContext{
			Tick: func() uint64 { return tick },
			KPI: func(name string) float64 {
				return kpiField(sample, name)
			},
			Log: func(msg string) {
				k.Log.Info().Str("callback", cb.ID).Str("kind", kind).Msg(msg)
			},
			EnqueueJob: func(pipelineID string) (string, error) {
				k.SubmitJob(model.PipelineID(pipelineID), 0)
				return pipelineID, nil
			},
			Register: func(eventKind, fnName string) {
				k.scripts.Register(scripthost.Callback{ID: fnName, Kind: eventKind, Source: cb.Source, Capabilities: cb.Capabilities})
			},
			Random: func() float64 {
				return k.RNG.Stream("scripthost:" + cb.ID).Float64()
			},
			SaveState: func() (string, error) {
				return k.scriptState[cb.ID], nil
			},
			LoadState: func(state string) error {
				k.scriptState[cb.ID] = state
				return nil
			},
		}
		caps := cb.Capabilities

		budget := k.cfg.ScriptStepBudget
		if budget == 0 {
			budget = defaultScriptStepBudget
		}
		rt := scripthost.New(caps, ctx, budget)
		if _, err := rt.Run(cb.Source); err != nil {
			k.Log.Error().Err(err).Str("callback", cb.ID).Uint64("tick", tick).Msg("scripted callback failed")
			k.scripts.ReportFailure(cb.ID)
			k.appendEvent(eventlog.KindSandboxFault, []byte(cb.ID))
		}
	}
}

const defaultScriptStepBudget = 10000

func kpiField(s model.KPISample, name string) float64 {
	switch name {
	case "uptime":
		return s.Uptime
	case "deadline_hit_rate":
		return s.DeadlineHitRate
	case "corruption_field":
		return s.CorruptionField
	case "sticky_workers":
		return float64(s.StickyWorkers)
	case "black_swans_fired":
		return float64(s.BlackSwansFired)
	}
	return 0
}
