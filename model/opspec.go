package model

// CostProfile is the per-tick resource draw of a running op.
type CostProfile struct {
	CPUCycles     float64
	GPUUnits      float64
	IOBytes       float64
	VRAMBytes     uint64
	PCIeBytes     uint64
	HeatPerTick   float64
	PowerPerTick  float64
	DurationTicks int
}

// OpSpec is the immutable definition of one pipeline stage. Op specs are
// never mutated in place; active research/Black Swan mutations are
// layered on top and resolved by EffectiveOpSpec (see pipeline package),
// per Design Notes "effective op/pipeline spec."
type OpSpec struct {
	ID               OpSpecID
	Name             string
	TargetClass      WorkerClass
	BaseWorkUnits    float64
	Cost             CostProfile
	BaseFaultProb    float64
	CustomExecutor   string // non-empty selects an extension-runtime executor by name
}

// QoSTag classifies a pipeline's scheduling priority concern.
type QoSTag int

const (
	QoSLatency QoSTag = iota
	QoSThroughput
	QoSReliability
	QoSEfficiency
)

func (q QoSTag) String() string {
	switch q {
	case QoSLatency:
		return "Latency"
	case QoSThroughput:
		return "Throughput"
	case QoSReliability:
		return "Reliability"
	case QoSEfficiency:
		return "Efficiency"
	}
	return "UNKNOWN"
}

// PipelineSpec is an ordered sequence of op refs.
type PipelineSpec struct {
	ID           PipelineID
	Name         string
	Ops          []OpSpecID
	QoS          QoSTag
	BaseDeadline int  // ticks from admission
	Mutated      bool // set when a research/event mutation has touched this pipeline
}
