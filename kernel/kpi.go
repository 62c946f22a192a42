package kernel

import (
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/research"
)

// buildKPISample reduces the post-stage-8 committed state into one
// KPISample (spec.md §4.7), the unit the Win/Loss Evaluator's sliding
// window operates over.
func (k *Kernel) buildKPISample(tick uint64, swanFired *research.BlackSwan) model.KPISample {
	s := k.Store

	total, healthy := 0, 0
	sticky := 0
	for _, id := range s.SortedWorkerIDs() {
		w := s.Workers[id]
		total++
		if w.State.Kind != model.WorkerFaulted && w.State.Kind != model.WorkerQuarantined {
			healthy++
		}
		if w.State.Kind == model.WorkerQuarantined || w.State.StickyStreak > 0 {
			sticky++
		}
	}
	uptime := 1.0
	if total > 0 {
		uptime = float64(healthy) / float64(total)
	}

	hitRate := 1.0
	if k.completedTotal > 0 {
		hitRate = float64(k.completedOnTime) / float64(k.completedTotal)
	}

	swans := 0
	if swanFired != nil {
		swans = 1
	}

	return model.KPISample{
		Tick:             tick,
		Uptime:           uptime,
		DeadlineHitRate:  hitRate,
		CorruptionField:  s.Resources.CorruptionField,
		StickyWorkers:    sticky,
		PowerDeficitTick: k.lastPowerDeficit,
		BlackSwansFired:  swans,
	}
}
