package research

import (
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/worldstore"
)

// Metrics builds the scan-time snapshot BlackSwan conditions are
// evaluated against, read directly off the committed post-dispatch state
// (§4.1 stage 8 runs after Resource Model post-update).
func Metrics(store *worldstore.Store) map[string]float64 {
	m := map[string]float64{
		"corruption_field": store.Resources.CorruptionField,
		"power_deficit":     0,
		"bandwidth_pressure": 0,
		"sticky_workers":    0,
		"research_points":   float64(store.Research.Points),
	}
	if store.Resources.PowerCapacity > 0 && store.Resources.PowerDraw > store.Resources.PowerCapacity {
		m["power_deficit"] = 1
	}
	if store.Resources.BandwidthCapacity > 0 && store.Resources.BandwidthUsed > store.Resources.BandwidthCapacity {
		m["bandwidth_pressure"] = 1
	}
	for _, wid := range store.SortedWorkerIDs() {
		w := store.Workers[wid]
		if w.State.Kind == model.WorkerQuarantined || w.State.StickyStreak > 0 {
			m["sticky_workers"]++
		}
	}
	return m
}
