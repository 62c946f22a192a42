package research

import (
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/pipeline"
	"github.com/ftahirops/colonysim/worldstore"
)

// DefaultPointsPerSlot is a reference rate of one research point per
// SignalHub capacity slot (or Running "research"-named op) per tick
// (§4.6). Accrue takes its rate as ratePerSlot and does not fall back to
// this value when that argument is zero.
const DefaultPointsPerSlot = 1.0

// Accrue sums this tick's research point contribution: every SignalHub
// workyard's capacity, plus any Running job currently executing an op
// named "research" regardless of its host yard's kind (§4.6: "workyards
// of the SignalHub kind (or any yard with a 'research' op running)").
func Accrue(store *worldstore.Store, ratePerSlot float64) float64 {
	var pts float64
	for _, yid := range store.SortedWorkyardIDs() {
		y := store.Workyards[yid]
		if y.Kind == model.KindSignalHub {
			pts += float64(y.Capacity) * ratePerSlot
		}
	}
	for _, jid := range store.SortedJobIDs() {
		j := store.Jobs[jid]
		if j.Status != model.JobRunning {
			continue
		}
		pipe := store.Pipelines[j.Pipeline]
		opID, ok := pipeline.CurrentOp(j, pipe)
		if !ok {
			continue
		}
		op := store.Ops[opID]
		if op.Name == "research" {
			pts += ratePerSlot
		}
	}
	return pts
}
