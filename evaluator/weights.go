// Package evaluator implements the windowed win/loss condition checker
// (spec.md §4.7). It aggregates worldstore.History's ring buffer of KPI
// samples into a weighted score, grounded on the teacher's
// engine.AlertState sustained-threshold shape ("state escalates only
// after enough consecutive ticks", generalized here into "a score must
// clear its threshold over the trailing window" instead of a fixed tick
// count).
package evaluator

import "github.com/ftahirops/colonysim/model"

// Weights scales each windowed statistic before summing into a score.
// Fields mirror §4.7's named windows: uptime, deadline_hit_rate,
// corruption_field, active sticky workers, consecutive power-deficit
// ticks, rolling Black Swan count.
type Weights struct {
	Uptime             float64
	DeadlineHitRate    float64
	CorruptionField    float64
	StickyWorkers      float64
	PowerDeficitStreak float64
	BlackSwanCount     float64
}

// DefaultWindow is the sliding-window size (ticks) used unless a scenario
// overrides it (Open Question #3, DESIGN.md).
const DefaultWindow = 200

// DefaultVictoryThreshold and DefaultLossThreshold are the scalar
// thresholds a weighted score must clear to end the run. Chosen so S1's
// 1000-tick, fault-free, deadline-hitting, zero-Black-Swan scenario
// resolves to neither — it is a stability check, not an end condition
// (DESIGN.md Open Question #3): max achievable score from uptime and
// deadline_hit_rate alone is 6.0, so the BlackSwanCount term must also
// contribute before Victory can fire.
const (
	DefaultVictoryThreshold = 6.5
	DefaultLossThreshold    = 5.0
)

// DefaultVictoryWeights rewards sustained high uptime and deadline hit
// rate and surviving Black Swans, and is suppressed by corruption.
func DefaultVictoryWeights() Weights {
	return Weights{
		Uptime:          3.0,
		DeadlineHitRate: 3.0,
		CorruptionField: -2.0,
		BlackSwanCount:  1.0,
	}
}

// DefaultLossWeights rewards sustained corruption, sticky-worker buildup,
// power starvation and Black Swan frequency.
func DefaultLossWeights() Weights {
	return Weights{
		CorruptionField:    4.0,
		StickyWorkers:      0.5,
		PowerDeficitStreak: 0.2,
		BlackSwanCount:     0.5,
	}
}

// Stats is the aggregated view of a KPISample window that Score consumes.
type Stats struct {
	AvgUptime          float64
	AvgDeadlineHitRate float64
	AvgCorruptionField float64
	MaxStickyWorkers   int
	PowerDeficitStreak int // consecutive deficit ticks ending at the window's last sample
	BlackSwanCount     int // sum across the window
}

// Aggregate reduces a trailing KPISample window (oldest..newest, as
// returned by worldstore.History.Window) into Stats.
func Aggregate(window []model.KPISample) Stats {
	var s Stats
	if len(window) == 0 {
		return s
	}
	var uptimeSum, hitSum, corrSum float64
	streak := 0
	for _, k := range window {
		uptimeSum += k.Uptime
		hitSum += k.DeadlineHitRate
		corrSum += k.CorruptionField
		if k.StickyWorkers > s.MaxStickyWorkers {
			s.MaxStickyWorkers = k.StickyWorkers
		}
		s.BlackSwanCount += k.BlackSwansFired
		if k.PowerDeficitTick {
			streak++
		} else {
			streak = 0
		}
	}
	n := float64(len(window))
	s.AvgUptime = uptimeSum / n
	s.AvgDeadlineHitRate = hitSum / n
	s.AvgCorruptionField = corrSum / n
	s.PowerDeficitStreak = streak
	return s
}

// Score computes the weighted sum of Stats against w.
func Score(w Weights, s Stats) float64 {
	return w.Uptime*s.AvgUptime +
		w.DeadlineHitRate*s.AvgDeadlineHitRate +
		w.CorruptionField*s.AvgCorruptionField +
		w.StickyWorkers*float64(s.MaxStickyWorkers) +
		w.PowerDeficitStreak*float64(s.PowerDeficitStreak) +
		w.BlackSwanCount*float64(s.BlackSwanCount)
}
