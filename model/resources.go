package model

// GlobalResources is the colony-wide resource ledger, updated once per
// tick by the resources package (§4.5) and read by every other stage.
type GlobalResources struct {
	PowerCapacity     float64
	PowerDraw         float64
	BandwidthCapacity float64
	BandwidthUsed     float64
	CorruptionField   float64 // [0,1]
	CurrentTick       uint64
}

// KPISample is one tick's worth of windowed-evaluation inputs (§4.7).
type KPISample struct {
	Tick              uint64
	Uptime            float64 // fraction of workers not Faulted/Quarantined
	DeadlineHitRate   float64
	CorruptionField   float64
	StickyWorkers     int
	PowerDeficitTick  bool
	BlackSwansFired   int
}

// ResearchState tracks the colony's tech tree progress.
type ResearchState struct {
	Points      int
	Completed   map[TechID]bool
	InProgress  map[TechID]int // tech -> accumulated progress units
}

// NewResearchState returns a zero-value-safe ResearchState.
func NewResearchState() ResearchState {
	return ResearchState{
		Completed:  make(map[TechID]bool),
		InProgress: make(map[TechID]int),
	}
}

// Mutation is a single layered modifier produced by a completed tech or a
// fired Black Swan. Mutations are never applied destructively (Design
// Notes); EffectiveOpSpec/EffectivePipelineSpec fold the active set on
// demand.
type Mutation struct {
	Source      string // tech id or black swan id, for provenance/rollback
	TargetOp    OpSpecID
	TargetPipe  PipelineID
	WorkFactor  float64 // multiplies BaseWorkUnits, 1.0 = no change
	FaultFactor float64 // multiplies BaseFaultProb, 1.0 = no change
	DeadlineAdd int     // ticks added to BaseDeadline
	ExpiresTick uint64  // 0 = never expires
}
