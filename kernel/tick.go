package kernel

import (
	"github.com/ftahirops/colonysim/dispatcher"
	"github.com/ftahirops/colonysim/eventlog"
	"github.com/ftahirops/colonysim/evaluator"
	"github.com/ftahirops/colonysim/fault"
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/pipeline"
	"github.com/ftahirops/colonysim/research"
	"github.com/ftahirops/colonysim/resources"
	"github.com/ftahirops/colonysim/rng"
	"github.com/ftahirops/colonysim/scheduler"
)

// Tick advances the colony by exactly one unit, running each of §4.1's
// eleven stages once, in order, and returns the tick number that just
// completed. Serialized by tickMu so concurrent callers (an outer CLI
// and a sandboxed callback both calling SubmitJob, say) never interleave
// a tick's stages (§5 "single-writer tick loop").
func (k *Kernel) Tick() uint64 {
	k.tickMu.Lock()
	defer k.tickMu.Unlock()

	tick := k.tick
	k.appendEvent(eventlog.KindTickStart, nil)

	// Stage 1: ingest.
	k.stageIngest(tick)

	// Stage 2: RNG advance. Every substream advances lazily as later
	// stages draw from it; this stage exists to give every tick a named,
	// logged synchronization point even when nothing downstream draws
	// randomness this tick (e.g. an idle colony with no Running workers).
	fingerprint := k.RNG.Stream("tick").Uint64()
	k.Log.Debug().Uint64("tick", tick).Uint64("rng_fingerprint", fingerprint).Msg("tick rng advance")

	// Stage 3: backoff.
	fault.Backoff(k.Store, tick)
	k.stageMaintenance(tick)

	// Stage 4: schedule.
	mutations := k.Store.Mutations
	acts := scheduler.Select(k.Store, k.cfg.Policy, mutations, tick)
	dispatcher.Activate(k.Store, acts, mutations, tick)
	for _, a := range acts {
		k.appendEvent(eventlog.KindOpStarted, []byte(a.Job))
	}

	// Stage 5: dispatch.
	completions := dispatcher.Run(k.Store, mutations, tick)
	k.recordCompletions(completions, tick)

	// Stage 6: fault sample.
	before := k.faultedSnapshot()
	fault.Sample(k.Store, k.RNG.Stream(rng.TagFault), k.cfg.FaultParams, tick)
	newlyFaulted := k.newlyFaulted(before)
	for range newlyFaulted {
		k.appendEvent(eventlog.KindFaultSampled, nil)
	}

	// Stage 7: resource post-update.
	k.stageResources(tick, len(newlyFaulted))

	// Stage 8: research / Black Swan.
	swanFired := k.stageResearch(tick)

	// Stage 9: win/loss.
	sample := k.buildKPISample(tick, swanFired)
	k.History.Push(sample)
	outcomeFired := k.stageEvaluate(tick)

	// Stage 10: sandbox dispatch.
	k.stageSandbox(tick, sample, newlyFaulted, swanFired)

	// Stage 11: KPI / checkpoint.
	k.stageCheckpoint(tick, sample, outcomeFired, k.newlySticky(newlyFaulted))

	k.appendEvent(eventlog.KindTickEnd, nil)
	if k.events != nil {
		_ = k.events.Flush()
	}

	k.tick++
	return tick
}

func (k *Kernel) stageIngest(tick uint64) {
	pending := k.ingest
	k.ingest = nil
	for _, req := range pending {
		pipe, ok := k.Store.Pipelines[req.Pipeline]
		if !ok {
			k.Log.Warn().Str("pipeline", string(req.Pipeline)).Msg("ingest: unknown pipeline, dropping request")
			continue
		}
		pipe = pipeline.EffectivePipelineSpec(pipe, k.Store.Mutations, tick)
		id := model.JobID(model.NewID(idReader{k}))
		job := pipeline.NewJob(id, pipe, tick, req.Priority)
		k.Store.Jobs[job.ID] = &job
		k.appendEvent(eventlog.KindJobAdmitted, []byte(job.ID))
	}
}

// idReader adapts the worldstore RNG substream into the io.Reader
// model.NewID expects, without exposing the Stream type to model.
type idReader struct{ k *Kernel }

func (r idReader) Read(p []byte) (int, error) {
	return r.k.RNG.Stream(rng.TagWorldStore).Read(p)
}

// stageMaintenance runs Quarantined->Idle transitions on a fixed tick
// cadence (spec.md §4.4 "Quarantined --maintenance event--> Idle"; the
// triggering cadence is left to the kernel per DESIGN.md).
func (k *Kernel) stageMaintenance(tick uint64) {
	interval := k.cfg.MaintenanceInterval()
	if interval == 0 || tick%interval != 0 {
		return
	}
	for _, wid := range k.Store.SortedWorkerIDs() {
		fault.Maintain(k.Store.Workers[wid])
	}
}

func (k *Kernel) recordCompletions(completions []dispatcher.Completion, tick uint64) {
	for _, c := range completions {
		k.appendEvent(eventlog.KindOpCompleted, []byte(c.Job))
		if !c.PipelineDone {
			continue
		}
		k.completedTotal++
		job := k.Store.Jobs[c.Job]
		if job != nil && tick <= job.DeadlineTick {
			k.completedOnTime++
		}
	}
}

func (k *Kernel) faultedSnapshot() map[model.WorkerID]bool {
	out := make(map[model.WorkerID]bool, len(k.Store.Workers))
	for id, w := range k.Store.Workers {
		out[id] = w.State.Kind == model.WorkerFaulted
	}
	return out
}

func (k *Kernel) newlyFaulted(before map[model.WorkerID]bool) []model.WorkerID {
	var out []model.WorkerID
	for _, id := range k.Store.SortedWorkerIDs() {
		w := k.Store.Workers[id]
		if w.State.Kind == model.WorkerFaulted && !before[id] {
			out = append(out, id)
		}
	}
	return out
}

// newlySticky reports whether any worker named in newlyFaulted landed in
// Faulted(Sticky) this tick, as opposed to Faulted(Soft).
func (k *Kernel) newlySticky(newlyFaulted []model.WorkerID) bool {
	for _, id := range newlyFaulted {
		if w := k.Store.Workers[id]; w != nil && w.State.FaultKind == model.FaultSticky {
			return true
		}
	}
	return false
}

func (k *Kernel) stageResources(tick uint64, faultEventsThisTick int) {
	s := k.Store
	s.Resources.CurrentTick = tick

	draw := resources.PowerDraw(s, func(jid model.JobID) float64 {
		j := s.Jobs[jid]
		pipe := s.Pipelines[j.Pipeline]
		opID, ok := pipeline.CurrentOp(j, pipe)
		if !ok {
			return 0
		}
		return pipeline.EffectiveOpSpec(s.Ops[opID], s.Mutations, tick).Cost.PowerPerTick
	})
	s.Resources.PowerDraw = draw
	_, deficit := resources.PowerThrottle(draw, s.Resources.PowerCapacity)
	k.lastPowerDeficit = deficit

	bwDraw := resources.BandwidthDraw(s, func(jid model.JobID) float64 {
		j := s.Jobs[jid]
		pipe := s.Pipelines[j.Pipeline]
		opID, ok := pipeline.CurrentOp(j, pipe)
		if !ok {
			return 0
		}
		op := pipeline.EffectiveOpSpec(s.Ops[opID], s.Mutations, tick)
		if op.TargetClass != model.ClassIO {
			return 0
		}
		return op.Cost.IOBytes
	})
	s.Resources.BandwidthUsed = bwDraw

	for _, yid := range s.SortedWorkyardIDs() {
		yard := s.Workyards[yid]
		var heat float64
		for _, wid := range s.WorkersInYard(yid) {
			w := s.Workers[wid]
			if w.State.Kind != model.WorkerRunning {
				continue
			}
			job := s.Jobs[w.State.OpRef]
			if job == nil {
				continue
			}
			pipe := s.Pipelines[job.Pipeline]
			if opID, ok := pipeline.CurrentOp(job, pipe); ok {
				heat += pipeline.EffectiveOpSpec(s.Ops[opID], s.Mutations, tick).Cost.HeatPerTick
			}
		}
		resources.UpdateYardTemperature(yard, heat)
	}

	s.Resources.CorruptionField = resources.UpdateCorruption(
		s.Resources.CorruptionField, k.cfg.Corruption, faultEventsThisTick, 0, 0)

	pull := k.cfg.CorruptionPull
	if pull <= 0 {
		pull = defaultCorruptionPull
	}
	for _, wid := range s.SortedWorkerIDs() {
		resources.PullWorkerCorruption(s.Workers[wid], s.Resources.CorruptionField, pull)
	}

	s.PruneExpiredMutations(tick)
}

const defaultCorruptionPull = 0.05

func (k *Kernel) stageResearch(tick uint64) *research.BlackSwan {
	s := k.Store
	s.Research.Points += int(research.Accrue(s, k.cfg.ResearchRate))

	metrics := research.Metrics(s)
	fired := k.scanner.Scan(k.catalog, metrics, tick)
	if fired != nil {
		muts := k.scanner.Fire(*fired, tick, k.cfg.BlackSwanDuration)
		for _, m := range muts {
			s.AddMutation(m)
			k.appendEvent(eventlog.KindMutationApplied, []byte(m.Source))
		}
		k.appendEvent(eventlog.KindBlackSwanFired, []byte(fired.ID))
	}

	for _, t := range research.SelectUnlockable(k.techTree, s.Research) {
		muts := research.Unlock(t, &s.Research)
		for _, m := range muts {
			s.AddMutation(m)
			k.appendEvent(eventlog.KindMutationApplied, []byte(m.Source))
		}
		k.appendEvent(eventlog.KindResearchCompleted, []byte(t.ID))
	}

	return fired
}

func (k *Kernel) stageEvaluate(tick uint64) bool {
	if k.outcome != evaluator.None {
		return false
	}
	window := k.History.Window(k.cfg.windowSize())
	stats := evaluator.Aggregate(window)
	outcome := evaluator.Evaluate(stats, k.cfg.Victory, k.cfg.Loss)
	if outcome == evaluator.None {
		return false
	}
	k.outcome = outcome
	k.outcomeTick = tick
	k.Log.Info().Uint64("tick", tick).Str("outcome", outcome.String()).Msg("win/loss condition fired")
	return true
}

func (k *Kernel) stageCheckpoint(tick uint64, sample model.KPISample, outcomeFired, stickyFired bool) {
	if k.archiver != nil {
		if err := k.archiver.Archive(sample); err != nil {
			k.Log.Error().Err(err).Uint64("tick", tick).Msg("kpi archive failed")
		}
	}

	forceSticky := stickyFired && !k.forcedOnSticky
	if forceSticky {
		k.forcedOnSticky = true
	}
	forced := outcomeFired || forceSticky
	periodic := k.cfg.AutosaveEvery > 0 && tick > 0 && tick%k.cfg.AutosaveEvery == 0
	if !forced && !periodic {
		return
	}
	if err := k.Checkpoint(); err != nil {
		k.Log.Error().Err(err).Uint64("tick", tick).Msg("checkpoint failed")
	}
}

// windowSize returns the evaluator window, defaulting when unset.
func (c Config) windowSize() int {
	if c.Window <= 0 {
		return evaluator.DefaultWindow
	}
	return c.Window
}

// MaintenanceInterval returns the configured tick cadence at which
// Quarantined workers are returned to service, defaulting to 50 ticks.
func (c Config) MaintenanceInterval() uint64 {
	if c.MaintenanceEvery == 0 {
		return defaultMaintenanceInterval
	}
	return c.MaintenanceEvery
}

const defaultMaintenanceInterval = 50
