// Package kernel is the tick-loop orchestrator (spec.md §4.1): it wires
// worldstore, scheduler, dispatcher, fault, resources, research,
// evaluator, sandbox, eventlog and snapshot into one deterministic
// per-tick pipeline. It generalizes the teacher's engine.Engine.Tick
// ("serialize via mutex, collect, compute deltas, analyze") from
// "collect real host metrics" into "advance simulated colony state by
// one unit" — same shape, different substance.
package kernel

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ftahirops/colonysim/evaluator"
	"github.com/ftahirops/colonysim/eventlog"
	"github.com/ftahirops/colonysim/fault"
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/research"
	"github.com/ftahirops/colonysim/resources"
	"github.com/ftahirops/colonysim/rng"
	"github.com/ftahirops/colonysim/sandbox/binhost"
	"github.com/ftahirops/colonysim/sandbox/scripthost"
	"github.com/ftahirops/colonysim/scheduler"
	"github.com/ftahirops/colonysim/snapshot"
	"github.com/ftahirops/colonysim/worldstore"
)

// Archiver mirrors archive.Sink without importing it, so kernel
// never depends on a concrete sink — callers inject whichever archiver
// (or none) they configured (spec.md §6, "purely observational sink").
type Archiver interface {
	Archive(sample model.KPISample) error
}

// BinModule is a named custom-op binary module plus its configured fuel
// and memory budgets, and the capability mask the sandbox ABI grants it
// (spec.md §4.8; §6 "capability bitmask per mod").
type BinModule struct {
	Module       binhost.Module
	FuelBudget   int
	MemoryPages  int
	OutputCap    int
	Capabilities binhost.Capability
}

// Config bundles every tunable the kernel needs at construction, leaving
// Kernel itself free of config-parsing concerns (that is config's job).
type Config struct {
	Seed             uint64
	Policy           scheduler.Policy
	FaultParams      fault.Params
	Corruption       resources.CorruptionParams
	CorruptionPull   float64 // personal-corruption pull fraction, DESIGN.md Open Question #1
	Catalog          []research.BlackSwan
	TechTree         []research.Tech
	Victory          evaluator.Conditions
	Loss             evaluator.Conditions
	Window           int
	ResearchRate     float64 // points per SignalHub capacity slot per tick
	BlackSwanDuration uint64 // ticks a fired Black Swan's mutations stay active
	AutosaveEvery    uint64  // 0 disables periodic autosave
	SnapshotPath     func(tick uint64) string
	KernelVersion    snapshot.KernelVersion
	ScriptStepBudget uint64
	MaintenanceEvery uint64 // tick cadence for Quarantined->Idle, 0 = default (50)
}

// Kernel owns one run's worldstore, RNG substreams, logging and
// persistence, and drives it forward one tick at a time. Run state below
// is mutated from inside Tick, serialized by tickMu — the same
// single-writer discipline engine.Engine uses for Tick(). SubmitJob
// queues ingest requests under the same lock; Register/UnregisterBinModule
// change binModules without taking it.
type Kernel struct {
	cfg Config

	Store   *worldstore.Store
	RNG     *rng.Set
	History *worldstore.History
	Log     zerolog.Logger

	scanner  *research.Scanner
	catalog  []research.BlackSwan
	techTree []research.Tech

	events    *eventlog.Writer
	recorder  snapshot.Recorder
	archiver  Archiver
	binModules map[model.OpSpecID]BinModule
	scripts    *scripthost.Registry

	tickMu sync.Mutex
	tick   uint64
	ingest []ingestRequest

	completedTotal   int
	completedOnTime  int
	outcome          evaluator.Outcome
	outcomeTick      uint64
	lastPowerDeficit bool
	scriptState      map[string]string
	forcedOnSticky   bool
}

// ingestRequest is one pending job admission, queued by SubmitJob (or a
// sandbox/scripted callback's enqueue_job) for the next ingest stage.
type ingestRequest struct {
	Pipeline model.PipelineID
	Priority int
}

// New constructs a Kernel over store, ready to run from tick 0.
func New(cfg Config, store *worldstore.Store, log zerolog.Logger, events *eventlog.Writer, archiver Archiver) *Kernel {
	if cfg.Window <= 0 {
		cfg.Window = evaluator.DefaultWindow
	}
	k := &Kernel{
		cfg:        cfg,
		Store:      store,
		RNG:        rng.NewSet(cfg.Seed),
		History:    worldstore.NewHistory(cfg.Window),
		Log:        log,
		scanner:    research.NewScanner(),
		catalog:    cfg.Catalog,
		techTree:   cfg.TechTree,
		events:     events,
		recorder:   snapshot.Recorder{Kernel: cfg.KernelVersion},
		archiver:   archiver,
		binModules:  make(map[model.OpSpecID]BinModule),
		scripts:     scripthost.NewRegistry(),
		scriptState: make(map[string]string),
		outcome:     evaluator.None,
	}
	return k
}

// TickNumber returns the number of the next tick to run, which equals the
// count of ticks completed so far (callers read it only between Tick()
// calls).
func (k *Kernel) TickNumber() uint64 { return k.tick }

// Outcome reports the terminal verdict once Evaluate has fired, or
// evaluator.None while the run is still live.
func (k *Kernel) Outcome() (evaluator.Outcome, uint64) { return k.outcome, k.outcomeTick }

// RegisterBinModule makes a compiled custom-op module available to the
// sandbox dispatch stage under opID, and logs a ModLoaded event.
func (k *Kernel) RegisterBinModule(opID model.OpSpecID, mod BinModule) {
	k.binModules[opID] = mod
	k.appendEvent(eventlog.KindModLoaded, []byte(opID))
}

// UnregisterBinModule removes a previously registered module, logging
// ModUnloaded (spec.md §4.8 "hot-reload" applies to scripted callbacks;
// binary modules are swapped the same way, one unit at a time).
func (k *Kernel) UnregisterBinModule(opID model.OpSpecID) {
	delete(k.binModules, opID)
	k.appendEvent(eventlog.KindModUnloaded, []byte(opID))
}

// ScriptRegistry exposes the scripted-callback registry so a caller can
// Register/Reload event hooks before or between ticks.
func (k *Kernel) ScriptRegistry() *scripthost.Registry { return k.scripts }

// SubmitJob queues a new job for admission at the next ingest stage
// (spec.md §4.1 stage 1). It is the only way to add jobs from outside;
// the other external calls register modules or force a checkpoint.
func (k *Kernel) SubmitJob(pipeline model.PipelineID, priority int) {
	k.tickMu.Lock()
	defer k.tickMu.Unlock()
	k.ingest = append(k.ingest, ingestRequest{Pipeline: pipeline, Priority: priority})
}

func (k *Kernel) appendEvent(kind eventlog.Kind, payload []byte) {
	if k.events == nil {
		return
	}
	if _, err := k.events.Append(k.tick, kind, payload); err != nil {
		k.Log.Error().Err(err).Uint64("tick", k.tick).Str("kind", kind.String()).Msg("event log append failed")
	}
}

// Checkpoint forces an immediate snapshot write, independent of the
// configured autosave cadence (§4.10; also used by the "incident
// auto-snapshot" supplement on every Victory/Loss and first sticky
// fault, SPEC_FULL.md §12).
func (k *Kernel) Checkpoint() error {
	if k.cfg.SnapshotPath == nil {
		return nil
	}
	path := k.cfg.SnapshotPath(k.tick)
	sections := k.buildSnapshotSections()
	if err := k.recorder.Save(path, k.cfg.Seed, k.tick, 0, sections); err != nil {
		return fmt.Errorf("kernel: checkpoint at tick %d: %w", k.tick, err)
	}
	hash := sha256Sections(sections)
	k.appendEvent(eventlog.KindCheckpoint, eventlog.CheckpointPayload(hash))
	return nil
}
