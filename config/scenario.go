package config

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/ftahirops/colonysim/evaluator"
	"github.com/ftahirops/colonysim/fault"
	"github.com/ftahirops/colonysim/kernel"
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/research"
	"github.com/ftahirops/colonysim/resources"
	"github.com/ftahirops/colonysim/sandbox/binhost"
	"github.com/ftahirops/colonysim/sandbox/scripthost"
	"github.com/ftahirops/colonysim/scheduler"
	"github.com/ftahirops/colonysim/worldstore"
)

// Scenario is the TOML-authored description of one run: colony layout
// (workyards, workers), the op/pipeline catalog, the tech tree and Black
// Swan catalog, and every tunable parameter the kernel needs. This is
// the "scenario/tech content" §1 names as an external collaborator —
// authored as data, never as Go source.
type Scenario struct {
	Seed                   uint64 `toml:"seed"`
	Policy                 string `toml:"policy"` // "fifo", "sjf", "edf"
	PowerCapacity          float64 `toml:"power_capacity"`
	BandwidthCapacity      float64 `toml:"bandwidth_capacity"`
	CorruptionStart        float64 `toml:"corruption_start"`
	CorruptionPull         float64 `toml:"corruption_pull"`
	ResearchRate           float64 `toml:"research_rate"`
	BlackSwanDurationTicks uint64  `toml:"black_swan_duration_ticks"`
	AutosaveEvery          uint64  `toml:"autosave_every"`
	MaintenanceEvery       uint64  `toml:"maintenance_every"`
	ScriptStepBudget       uint64  `toml:"script_step_budget"`

	Fault      faultSpec      `toml:"fault"`
	Corruption corruptionSpec `toml:"corruption"`

	Workyards  []workyardSpec  `toml:"workyard"`
	Workers    []workerSpec    `toml:"worker"`
	Ops        []opSpec        `toml:"op"`
	Pipelines  []pipelineSpec  `toml:"pipeline"`
	TechTree   []techSpec      `toml:"tech"`
	BlackSwans []blackSwanSpec `toml:"black_swan"`
	Victory    conditionsSpec  `toml:"victory"`
	Loss       conditionsSpec  `toml:"loss"`

	BinModules      []binModuleSpec      `toml:"bin_module"`
	ScriptCallbacks []scriptCallbackSpec `toml:"script_callback"`
}

// instructionSpec is one bytecode instruction of a bin_module's Code,
// spec.md §6's sandbox ABI expressed as TOML rather than a compiled
// artifact on disk.
type instructionSpec struct {
	Op  string `toml:"op"`
	Arg int64  `toml:"arg"`
}

// binModuleSpec authors one custom-op binary module registration: which
// op it executes, its fuel/memory/output budgets, and the capability
// bitmask it is granted (spec.md §6 "capability bitmask per mod") —
// never more than it declares here.
type binModuleSpec struct {
	Op           string            `toml:"op"`
	FuelBudget   int               `toml:"fuel_budget"`
	MemoryPages  int               `toml:"memory_pages"`
	OutputCap    int               `toml:"output_cap"`
	Capabilities []string          `toml:"capabilities"`
	Code         []instructionSpec `toml:"code"`
}

// scriptCallbackSpec authors one scripted event-hook registration: its
// event kind, inline JS source, and the capability bitmask gating which
// host globals it sees (spec.md §4.8, §6).
type scriptCallbackSpec struct {
	ID           string   `toml:"id"`
	Kind         string   `toml:"kind"`
	Source       string   `toml:"source"`
	Capabilities []string `toml:"capabilities"`
}

// SandboxSpec is the resolved set of bin modules and scripted callbacks
// a scenario wants registered. Build never touches a *kernel.Kernel
// (kernel registration is a post-construction step, §1's scenario/tech
// content stays an external collaborator) — a caller feeds this to
// kernel.RegisterBinModule / kernel.ScriptRegistry().Register once the
// Kernel exists.
type SandboxSpec struct {
	BinModules      []BinModuleRegistration
	ScriptCallbacks []scripthost.Callback
}

// BinModuleRegistration pairs a resolved kernel.BinModule with the op id
// it executes, ready for kernel.RegisterBinModule.
type BinModuleRegistration struct {
	OpID   model.OpSpecID
	Module kernel.BinModule
}

type faultSpec struct {
	Alpha             float64 `toml:"alpha"`
	Beta              float64 `toml:"beta"`
	StickyAlpha       float64 `toml:"sticky_alpha"`
	StickyBeta        float64 `toml:"sticky_beta"`
	StickyGateThresh  float64 `toml:"sticky_gate_thresh"`
	PropagateBaseProb float64 `toml:"propagate_base_prob"`
	PropagateSlope    float64 `toml:"propagate_slope"`
}

type corruptionSpec struct {
	Gamma float64 `toml:"gamma"`
	Delta float64 `toml:"delta"`
}

type thermalSpec struct {
	AmbientTemp    float64 `toml:"ambient_temp"`
	MaxTemp        float64 `toml:"max_temp"`
	ThrottleThresh float64 `toml:"throttle_thresh"`
	CoolingCoeff   float64 `toml:"cooling_coeff"`
}

type gpuSpec struct {
	VRAMTotal   uint64 `toml:"vram_total"`
	PCIeBWTotal uint64 `toml:"pcie_bw_total"`
	BatchCap    int    `toml:"batch_cap"`
}

type workyardSpec struct {
	ID       string      `toml:"id"`
	Kind     string      `toml:"kind"` // "cpu_array", "gpu_farm", "signal_hub"
	Capacity int         `toml:"capacity"`
	Thermal  thermalSpec `toml:"thermal"`
	GPU      gpuSpec     `toml:"gpu"`
}

type skillSpec struct {
	CPU float64 `toml:"cpu"`
	GPU float64 `toml:"gpu"`
	IO  float64 `toml:"io"`
}

type retrySpec struct {
	MaxRetries   int  `toml:"max_retries"`
	BackoffTicks int  `toml:"backoff_ticks"`
	Exponential  bool `toml:"exponential"`
}

type workerSpec struct {
	ID         string    `toml:"id"`
	Yard       string    `toml:"yard"`
	Class      string    `toml:"class"` // "cpu", "gpu", "io"
	Skill      skillSpec `toml:"skill"`
	Discipline float64   `toml:"discipline"`
	Focus      float64   `toml:"focus"`
	Retry      retrySpec `toml:"retry"`
}

type costSpec struct {
	CPUCycles     float64 `toml:"cpu_cycles"`
	GPUUnits      float64 `toml:"gpu_units"`
	IOBytes       float64 `toml:"io_bytes"`
	VRAMBytes     uint64  `toml:"vram_bytes"`
	PCIeBytes     uint64  `toml:"pcie_bytes"`
	HeatPerTick   float64 `toml:"heat_per_tick"`
	PowerPerTick  float64 `toml:"power_per_tick"`
	DurationTicks int     `toml:"duration_ticks"`
}

type opSpec struct {
	ID             string   `toml:"id"`
	Name           string   `toml:"name"`
	TargetClass    string   `toml:"target_class"`
	BaseWorkUnits  float64  `toml:"base_work_units"`
	Cost           costSpec `toml:"cost"`
	BaseFaultProb  float64  `toml:"base_fault_prob"`
	CustomExecutor string   `toml:"custom_executor"`
}

type pipelineSpec struct {
	ID           string   `toml:"id"`
	Name         string   `toml:"name"`
	Ops          []string `toml:"ops"`
	QoS          string   `toml:"qos"` // "latency", "throughput", "reliability", "efficiency"
	BaseDeadline int      `toml:"base_deadline"`
}

type mutationSpec struct {
	TargetOp    string  `toml:"target_op"`
	TargetPipe  string  `toml:"target_pipe"`
	WorkFactor  float64 `toml:"work_factor"`
	FaultFactor float64 `toml:"fault_factor"`
	DeadlineAdd int     `toml:"deadline_add"`
	ExpiresTick uint64  `toml:"expires_tick"`
}

type techSpec struct {
	ID      string         `toml:"id"`
	Name    string         `toml:"name"`
	Cost    int            `toml:"cost"`
	Prereqs []string       `toml:"prereqs"`
	Effects []mutationSpec `toml:"effects"`
}

type triggerSpec struct {
	Metric string  `toml:"metric"`
	Min    float64 `toml:"min"`
}

type blackSwanSpec struct {
	ID         string         `toml:"id"`
	Name       string         `toml:"name"`
	Priority   int            `toml:"priority"`
	Conditions []triggerSpec  `toml:"conditions"`
	MinMatch   int            `toml:"min_match"`
	Cooldown   int            `toml:"cooldown"`
	Narrative  string         `toml:"narrative"`
	Mutations  []mutationSpec `toml:"mutations"`
}

type weightsSpec struct {
	Uptime             float64 `toml:"uptime"`
	DeadlineHitRate    float64 `toml:"deadline_hit_rate"`
	CorruptionField    float64 `toml:"corruption_field"`
	StickyWorkers      float64 `toml:"sticky_workers"`
	PowerDeficitStreak float64 `toml:"power_deficit_streak"`
	BlackSwanCount     float64 `toml:"black_swan_count"`
}

type conditionsSpec struct {
	Weights   weightsSpec `toml:"weights"`
	Threshold float64     `toml:"threshold"`
}

// LoadScenario parses a TOML scenario file.
func LoadScenario(path string) (Scenario, error) {
	var s Scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Scenario{}, fmt.Errorf("config: load scenario %s: %w", path, err)
	}
	return s, nil
}

// Build resolves the scenario into a ready-to-run worldstore.Store,
// kernel.Config, and SandboxSpec triple. The kernel never parses TOML
// itself — everything it needs arrives already typed, per spec.md §1's
// "scenario/tech content remain external collaborators."
func (s Scenario) Build() (*worldstore.Store, kernel.Config, SandboxSpec, error) {
	store := worldstore.New()
	store.Resources.PowerCapacity = s.PowerCapacity
	store.Resources.BandwidthCapacity = s.BandwidthCapacity
	store.Resources.CorruptionField = s.CorruptionStart

	for _, y := range s.Workyards {
		kind, err := parseWorkyardKind(y.Kind)
		if err != nil {
			return nil, kernel.Config{}, SandboxSpec{}, err
		}
		store.AddWorkyard(&model.Workyard{
			ID:       model.WorkyardID(y.ID),
			Kind:     kind,
			Capacity: y.Capacity,
			Thermal: model.ThermalProfile{
				AmbientTemp:    y.Thermal.AmbientTemp,
				MaxTemp:        y.Thermal.MaxTemp,
				ThrottleThresh: y.Thermal.ThrottleThresh,
				CoolingCoeff:   y.Thermal.CoolingCoeff,
			},
			GPU: model.GPUResources{
				VRAMTotal:   y.GPU.VRAMTotal,
				VRAMFree:    y.GPU.VRAMTotal,
				PCIeBWTotal: y.GPU.PCIeBWTotal,
				BatchCap:    y.GPU.BatchCap,
			},
		})
	}

	for _, w := range s.Workers {
		class, err := parseWorkerClass(w.Class)
		if err != nil {
			return nil, kernel.Config{}, SandboxSpec{}, err
		}
		store.AddWorker(&model.Worker{
			ID:         model.WorkerID(w.ID),
			Yard:       model.WorkyardID(w.Yard),
			Class:      class,
			Skill:      model.Skill{CPU: w.Skill.CPU, GPU: w.Skill.GPU, IO: w.Skill.IO},
			Discipline: w.Discipline,
			Focus:      w.Focus,
			Retry: model.RetryPolicy{
				MaxRetries:   w.Retry.MaxRetries,
				BackoffTicks: w.Retry.BackoffTicks,
				Exponential:  w.Retry.Exponential,
			},
		})
	}

	for _, o := range s.Ops {
		class, err := parseWorkerClass(o.TargetClass)
		if err != nil {
			return nil, kernel.Config{}, SandboxSpec{}, err
		}
		store.Ops[model.OpSpecID(o.ID)] = model.OpSpec{
			ID:             model.OpSpecID(o.ID),
			Name:           o.Name,
			TargetClass:    class,
			BaseWorkUnits:  o.BaseWorkUnits,
			BaseFaultProb:  o.BaseFaultProb,
			CustomExecutor: o.CustomExecutor,
			Cost: model.CostProfile{
				CPUCycles:     o.Cost.CPUCycles,
				GPUUnits:      o.Cost.GPUUnits,
				IOBytes:       o.Cost.IOBytes,
				VRAMBytes:     o.Cost.VRAMBytes,
				PCIeBytes:     o.Cost.PCIeBytes,
				HeatPerTick:   o.Cost.HeatPerTick,
				PowerPerTick:  o.Cost.PowerPerTick,
				DurationTicks: o.Cost.DurationTicks,
			},
		}
	}

	for _, p := range s.Pipelines {
		qos, err := parseQoSTag(p.QoS)
		if err != nil {
			return nil, kernel.Config{}, SandboxSpec{}, err
		}
		ops := make([]model.OpSpecID, len(p.Ops))
		for i, id := range p.Ops {
			ops[i] = model.OpSpecID(id)
		}
		store.Pipelines[model.PipelineID(p.ID)] = model.PipelineSpec{
			ID:           model.PipelineID(p.ID),
			Name:         p.Name,
			Ops:          ops,
			QoS:          qos,
			BaseDeadline: p.BaseDeadline,
		}
	}

	policy, err := parsePolicy(s.Policy)
	if err != nil {
		return nil, kernel.Config{}, SandboxSpec{}, err
	}

	cfg := kernel.Config{
		Seed:   s.Seed,
		Policy: policy,
		FaultParams: fault.Params{
			Alpha:             s.Fault.Alpha,
			Beta:              s.Fault.Beta,
			StickyAlpha:       s.Fault.StickyAlpha,
			StickyBeta:        s.Fault.StickyBeta,
			StickyGateThresh:  s.Fault.StickyGateThresh,
			PropagateBaseProb: s.Fault.PropagateBaseProb,
			PropagateSlope:    s.Fault.PropagateSlope,
		},
		Corruption: resources.CorruptionParams{
			Gamma: s.Corruption.Gamma,
			Delta: s.Corruption.Delta,
		},
		CorruptionPull:    s.CorruptionPull,
		Catalog:           buildCatalog(s.BlackSwans),
		TechTree:          buildTechTree(s.TechTree),
		Victory:           buildConditions(s.Victory, evaluator.DefaultVictory()),
		Loss:              buildConditions(s.Loss, evaluator.DefaultLoss()),
		ResearchRate:      s.ResearchRate,
		BlackSwanDuration: s.BlackSwanDurationTicks,
		AutosaveEvery:     s.AutosaveEvery,
		MaintenanceEvery:  s.MaintenanceEvery,
		ScriptStepBudget:  s.ScriptStepBudget,
	}

	sandboxSpec, err := buildSandboxSpec(s.BinModules, s.ScriptCallbacks)
	if err != nil {
		return nil, kernel.Config{}, SandboxSpec{}, err
	}

	return store, cfg, sandboxSpec, nil
}

// buildSandboxSpec resolves the scenario's bin_module/script_callback
// tables into registration-ready values, parsing each declared capability
// name into the matching binhost/scripthost bitmask — a mod or callback
// only ever carries the capabilities its own TOML entry names.
func buildSandboxSpec(binSpecs []binModuleSpec, scriptSpecs []scriptCallbackSpec) (SandboxSpec, error) {
	modules := make([]BinModuleRegistration, 0, len(binSpecs))
	for _, b := range binSpecs {
		caps, err := parseBinCapabilities(b.Capabilities)
		if err != nil {
			return SandboxSpec{}, err
		}
		code := make([]binhost.Instruction, len(b.Code))
		for i, ins := range b.Code {
			op, err := parseOpcode(ins.Op)
			if err != nil {
				return SandboxSpec{}, err
			}
			code[i] = binhost.Instruction{Op: op, Arg: ins.Arg}
		}
		modules = append(modules, BinModuleRegistration{
			OpID: model.OpSpecID(b.Op),
			Module: kernel.BinModule{
				Module:       binhost.Module{Code: code},
				FuelBudget:   b.FuelBudget,
				MemoryPages:  b.MemoryPages,
				OutputCap:    b.OutputCap,
				Capabilities: caps,
			},
		})
	}

	callbacks := make([]scripthost.Callback, 0, len(scriptSpecs))
	for _, c := range scriptSpecs {
		caps, err := parseScriptCapabilities(c.Capabilities)
		if err != nil {
			return SandboxSpec{}, err
		}
		callbacks = append(callbacks, scripthost.Callback{
			ID:           c.ID,
			Kind:         c.Kind,
			Source:       c.Source,
			Capabilities: caps,
		})
	}

	return SandboxSpec{BinModules: modules, ScriptCallbacks: callbacks}, nil
}

func parseBinCapability(name string) (binhost.Capability, bool) {
	switch name {
	case "log":
		return binhost.CapLog, true
	case "rng":
		return binhost.CapRNG, true
	case "kpi_read":
		return binhost.CapKPIRead, true
	case "job_enqueue":
		return binhost.CapJobEnqueue, true
	case "tick_read":
		return binhost.CapTickRead, true
	}
	return 0, false
}

// ParseBinCapabilities parses comma-style capability names (the same
// vocabulary a bin_module's capabilities list uses) into a binhost
// capability mask, for callers building a deployment-wide ceiling mask
// from a CLI flag rather than the scenario TOML.
func ParseBinCapabilities(names []string) (binhost.Capability, error) {
	return parseBinCapabilities(names)
}

// ParseScriptCapabilities is ParseBinCapabilities for the scripthost
// capability vocabulary.
func ParseScriptCapabilities(names []string) (scripthost.Capability, error) {
	return parseScriptCapabilities(names)
}

// CeilingBinCapabilities parses a deployment-wide capability ceiling
// (e.g. from a CLI flag shared between bin modules and scripted
// callbacks) into a binhost mask, silently ignoring names that belong
// only to the scripthost vocabulary (such as "register" or "random").
func CeilingBinCapabilities(names []string) binhost.Capability {
	var caps binhost.Capability
	for _, name := range names {
		if bit, ok := parseBinCapability(name); ok {
			caps |= bit
		}
	}
	return caps
}

// CeilingScriptCapabilities is CeilingBinCapabilities for the scripthost
// vocabulary, silently ignoring bin-only names (such as "rng").
func CeilingScriptCapabilities(names []string) scripthost.Capability {
	var caps scripthost.Capability
	for _, name := range names {
		if bit, ok := parseScriptCapability(name); ok {
			caps |= bit
		}
	}
	return caps
}

func parseBinCapabilities(names []string) (binhost.Capability, error) {
	var caps binhost.Capability
	for _, name := range names {
		bit, ok := parseBinCapability(name)
		if !ok {
			return 0, fmt.Errorf("config: unknown bin module capability %q", name)
		}
		caps |= bit
	}
	return caps, nil
}

func parseScriptCapability(name string) (scripthost.Capability, bool) {
	switch name {
	case "log":
		return scripthost.CapLog, true
	case "tick_read":
		return scripthost.CapTickRead, true
	case "kpi_read":
		return scripthost.CapKPIRead, true
	case "job_enqueue":
		return scripthost.CapJobEnqueue, true
	case "register":
		return scripthost.CapRegister, true
	case "random":
		return scripthost.CapRandom, true
	case "save_state":
		return scripthost.CapSaveState, true
	case "load_state":
		return scripthost.CapLoadState, true
	}
	return 0, false
}

func parseScriptCapabilities(names []string) (scripthost.Capability, error) {
	var caps scripthost.Capability
	for _, name := range names {
		bit, ok := parseScriptCapability(name)
		if !ok {
			return 0, fmt.Errorf("config: unknown script callback capability %q", name)
		}
		caps |= bit
	}
	return caps, nil
}

func parseOpcode(s string) (binhost.Opcode, error) {
	switch s {
	case "nop":
		return binhost.OpNop, nil
	case "push_const":
		return binhost.OpPushConst, nil
	case "read_input":
		return binhost.OpReadInput, nil
	case "write_output":
		return binhost.OpWriteOutput, nil
	case "add":
		return binhost.OpAdd, nil
	case "sub":
		return binhost.OpSub, nil
	case "mul":
		return binhost.OpMul, nil
	case "jump_if_zero":
		return binhost.OpJumpIfZero, nil
	case "jump":
		return binhost.OpJump, nil
	case "halt":
		return binhost.OpHalt, nil
	case "push_random":
		return binhost.OpPushRandom, nil
	}
	return 0, fmt.Errorf("config: unknown bin module opcode %q", s)
}

func buildMutations(specs []mutationSpec) []model.Mutation {
	out := make([]model.Mutation, 0, len(specs))
	for _, m := range specs {
		out = append(out, model.Mutation{
			TargetOp:    model.OpSpecID(m.TargetOp),
			TargetPipe:  model.PipelineID(m.TargetPipe),
			WorkFactor:  m.WorkFactor,
			FaultFactor: m.FaultFactor,
			DeadlineAdd: m.DeadlineAdd,
			ExpiresTick: m.ExpiresTick,
		})
	}
	return out
}

func buildCatalog(specs []blackSwanSpec) []research.BlackSwan {
	out := make([]research.BlackSwan, 0, len(specs))
	for _, b := range specs {
		conds := make([]research.TriggerCondition, 0, len(b.Conditions))
		for _, c := range b.Conditions {
			conds = append(conds, research.TriggerCondition{Metric: c.Metric, Min: c.Min})
		}
		out = append(out, research.BlackSwan{
			ID:         model.BlackSwanID(b.ID),
			Name:       b.Name,
			Priority:   b.Priority,
			Conditions: conds,
			MinMatch:   b.MinMatch,
			Cooldown:   b.Cooldown,
			Narrative:  b.Narrative,
			Mutations:  buildMutations(b.Mutations),
		})
	}
	if len(out) == 0 {
		return research.DefaultCatalog()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func buildTechTree(specs []techSpec) []research.Tech {
	out := make([]research.Tech, 0, len(specs))
	for _, t := range specs {
		prereqs := make([]model.TechID, len(t.Prereqs))
		for i, p := range t.Prereqs {
			prereqs[i] = model.TechID(p)
		}
		out = append(out, research.Tech{
			ID:      model.TechID(t.ID),
			Name:    t.Name,
			Cost:    t.Cost,
			Prereqs: prereqs,
			Effects: buildMutations(t.Effects),
		})
	}
	return out
}

func buildConditions(c conditionsSpec, fallback evaluator.Conditions) evaluator.Conditions {
	if c.Threshold == 0 {
		return fallback
	}
	return evaluator.Conditions{
		Weights: evaluator.Weights{
			Uptime:             c.Weights.Uptime,
			DeadlineHitRate:    c.Weights.DeadlineHitRate,
			CorruptionField:    c.Weights.CorruptionField,
			StickyWorkers:      c.Weights.StickyWorkers,
			PowerDeficitStreak: c.Weights.PowerDeficitStreak,
			BlackSwanCount:     c.Weights.BlackSwanCount,
		},
		Threshold: c.Threshold,
	}
}

func parseWorkyardKind(s string) (model.WorkyardKind, error) {
	switch s {
	case "cpu_array", "":
		return model.KindCpuArray, nil
	case "gpu_farm":
		return model.KindGpuFarm, nil
	case "signal_hub":
		return model.KindSignalHub, nil
	}
	return 0, fmt.Errorf("config: unknown workyard kind %q", s)
}

func parseWorkerClass(s string) (model.WorkerClass, error) {
	switch s {
	case "cpu", "":
		return model.ClassCPU, nil
	case "gpu":
		return model.ClassGPU, nil
	case "io":
		return model.ClassIO, nil
	}
	return 0, fmt.Errorf("config: unknown worker class %q", s)
}

func parseQoSTag(s string) (model.QoSTag, error) {
	switch s {
	case "latency":
		return model.QoSLatency, nil
	case "throughput", "":
		return model.QoSThroughput, nil
	case "reliability":
		return model.QoSReliability, nil
	case "efficiency":
		return model.QoSEfficiency, nil
	}
	return 0, fmt.Errorf("config: unknown QoS tag %q", s)
}

func parsePolicy(s string) (scheduler.Policy, error) {
	switch s {
	case "fifo", "":
		return scheduler.FIFO, nil
	case "sjf":
		return scheduler.SJF, nil
	case "edf":
		return scheduler.EDF, nil
	}
	return 0, fmt.Errorf("config: unknown scheduler policy %q", s)
}
