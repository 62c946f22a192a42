package model

// WorkerClass is the class of work a worker is built to perform.
type WorkerClass int

const (
	ClassCPU WorkerClass = iota
	ClassGPU
	ClassIO
)

func (c WorkerClass) String() string {
	switch c {
	case ClassCPU:
		return "CPU"
	case ClassGPU:
		return "GPU"
	case ClassIO:
		return "IO"
	}
	return "UNKNOWN"
}

// WorkerStateKind discriminates a Worker's lifecycle state.
type WorkerStateKind int

const (
	WorkerIdle WorkerStateKind = iota
	WorkerRunning
	WorkerFaulted
	WorkerQuarantined
	WorkerMaintenance
)

func (s WorkerStateKind) String() string {
	switch s {
	case WorkerIdle:
		return "IDLE"
	case WorkerRunning:
		return "RUNNING"
	case WorkerFaulted:
		return "FAULTED"
	case WorkerQuarantined:
		return "QUARANTINED"
	case WorkerMaintenance:
		return "MAINTENANCE"
	}
	return "UNKNOWN"
}

// FaultKind distinguishes a soft (recoverable) fault from a sticky
// (quarantine-bound) fault.
type FaultKind int

const (
	FaultNone FaultKind = iota
	FaultSoft
	FaultSticky
)

func (k FaultKind) String() string {
	switch k {
	case FaultSoft:
		return "SOFT"
	case FaultSticky:
		return "STICKY"
	}
	return "NONE"
}

// RetryPolicy governs how a worker recovers from a fault.
type RetryPolicy struct {
	MaxRetries   int
	BackoffTicks int
	Exponential  bool // if true, backoff doubles per attempt instead of staying fixed
}

// Skill is a worker's proficiency vector, each component in [0,1].
type Skill struct {
	CPU float64
	GPU float64
	IO  float64
}

// For returns the skill component relevant to class.
func (s Skill) For(class WorkerClass) float64 {
	switch class {
	case ClassGPU:
		return s.GPU
	case ClassIO:
		return s.IO
	default:
		return s.CPU
	}
}

// WorkerState holds the mutable lifecycle state of a Worker.
type WorkerState struct {
	Kind          WorkerStateKind
	OpRef         JobID     // valid when Kind == WorkerRunning
	FaultKind     FaultKind // valid when Kind == WorkerFaulted
	RetriesLeft   int
	BackoffUntil  uint64 // tick at which a Faulted worker may retry
	Attempt       int    // attempt count on the current op
	StickyStreak  int    // cumulative sticky faults this run
}

// Worker is a single unit of compute capacity owned by a Workyard.
type Worker struct {
	ID                 WorkerID
	Yard               WorkyardID
	Class              WorkerClass
	Skill              Skill
	Discipline         float64 // [0,1]; carried and snapshotted, not read by fault sampling
	Focus              float64 // [0,1]; carried and snapshotted, not read by progress
	PersonalCorruption float64 // [0,1], see resources.UpdateCorruption decision in DESIGN.md
	Retry              RetryPolicy
	State              WorkerState
}

// CanAssign reports whether the scheduler may assign a new job to w.
func (w *Worker) CanAssign() bool {
	return w.State.Kind == WorkerIdle
}
