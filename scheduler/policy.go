// Package scheduler selects (job, worker) activations for one tick under a
// pluggable, purely functional policy (spec.md §4.2). It generalizes the
// teacher's engine.Profiles named-lookup-table shape into a policy table
// keyed by an enum instead of a string, per Design Notes "pluggable
// scheduler policy... no dynamic dispatch across tick boundaries."
package scheduler

// Policy selects the job ordering the scheduler uses to rank Pending jobs
// before pairing them against Idle workers.
type Policy int

const (
	FIFO Policy = iota
	SJF
	EDF
)

func (p Policy) String() string {
	switch p {
	case FIFO:
		return "FIFO"
	case SJF:
		return "SJF"
	case EDF:
		return "EDF"
	}
	return "UNKNOWN"
}

// Policies lists every valid policy value in a fixed, documented order —
// used by config validation and the CLI's --policy flag help text.
var Policies = []Policy{FIFO, SJF, EDF}

// ParsePolicy maps a config/CLI string to a Policy. Unrecognized names
// default to FIFO, matching the teacher's SelectProfile fallback-to-empty
// convention of never hard-failing on an unknown profile name.
func ParsePolicy(s string) Policy {
	switch s {
	case "SJF", "sjf":
		return SJF
	case "EDF", "edf":
		return EDF
	default:
		return FIFO
	}
}
