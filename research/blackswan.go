// Package research implements Black Swan event scanning, research point
// accrual and tech-unlock-driven mutations (spec.md §4.6). The catalog
// shape is a direct generalization of the teacher's engine.patternLibrary:
// a priority-ordered slice of named conditions, scanned deterministically
// and matched on a minimum-condition-count basis.
package research

import (
	"golang.org/x/exp/slices"

	"github.com/ftahirops/colonysim/model"
)

// TriggerCondition requires a named scan metric to be at or above Min.
type TriggerCondition struct {
	Metric string
	Min    float64
}

// BlackSwan is one catalog entry: a named, priority-ordered event that
// fires when enough of its conditions hold, subject to a per-event
// cooldown (ticks, never wall-clock — Design Notes "no wall-clock
// dependence").
type BlackSwan struct {
	ID         model.BlackSwanID
	Name       string
	Priority   int // higher fires first, ties broken by ID (I5)
	Conditions []TriggerCondition
	MinMatch   int
	Cooldown   int
	Narrative  string
	Mutations  []model.Mutation // effect template; Source/ExpiresTick stamped at Fire
}

// DefaultCatalog is the built-in set of Black Swans, grounded on the
// teacher's patternLibrary entries (OOM Crisis, Filesystem Full, ...)
// re-themed onto colony resource pressure instead of host telemetry.
func DefaultCatalog() []BlackSwan {
	catalog := []BlackSwan{
		{
			ID:       "power_cascade",
			Name:     "Power Cascade Failure",
			Priority: 100,
			Conditions: []TriggerCondition{
				{Metric: "power_deficit", Min: 1},
			},
			MinMatch:  1,
			Cooldown:  200,
			Narrative: "sustained power deficit trips a cascading brownout across the colony",
			Mutations: []model.Mutation{{WorkFactor: 1.5}},
		},
		{
			ID:       "corruption_storm",
			Name:     "Corruption Storm",
			Priority: 90,
			Conditions: []TriggerCondition{
				{Metric: "corruption_field", Min: 0.5},
			},
			MinMatch:  1,
			Cooldown:  300,
			Narrative: "corruption field breaches containment, degrading every active op",
			Mutations: []model.Mutation{{FaultFactor: 2.0}},
		},
		{
			ID:       "quarantine_wave",
			Name:     "Quarantine Wave",
			Priority: 80,
			Conditions: []TriggerCondition{
				{Metric: "sticky_workers", Min: 3},
				{Metric: "corruption_field", Min: 0.3},
			},
			MinMatch:  1,
			Cooldown:  150,
			Narrative: "a wave of sticky faults removes capacity across yards simultaneously",
			Mutations: []model.Mutation{{DeadlineAdd: 20}},
		},
		{
			ID:       "bandwidth_glut",
			Name:     "Bandwidth Glut",
			Priority: 60,
			Conditions: []TriggerCondition{
				{Metric: "bandwidth_pressure", Min: 1},
			},
			MinMatch:  1,
			Cooldown:  100,
			Narrative: "a burst of IO-bound pipelines saturates the colony's shared bandwidth",
			Mutations: []model.Mutation{{WorkFactor: 1.2}},
		},
	}
	slices.SortFunc(catalog, func(a, b BlackSwan) bool {
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})
	return catalog
}

// Scanner tracks per-Black-Swan cooldowns across ticks.
type Scanner struct {
	lastFired map[model.BlackSwanID]uint64
	fired     map[model.BlackSwanID]bool
}

// NewScanner creates an empty cooldown tracker.
func NewScanner() *Scanner {
	return &Scanner{lastFired: make(map[model.BlackSwanID]uint64), fired: make(map[model.BlackSwanID]bool)}
}

func (s *Scanner) onCooldown(b BlackSwan, tick uint64) bool {
	if !s.fired[b.ID] {
		return false
	}
	return tick-s.lastFired[b.ID] < uint64(b.Cooldown)
}

// Scan walks catalog in priority order (ties by ID, already sorted by
// DefaultCatalog) and returns the first entry whose conditions are
// satisfied and whose cooldown has elapsed, or nil.
func (s *Scanner) Scan(catalog []BlackSwan, metrics map[string]float64, tick uint64) *BlackSwan {
	for i := range catalog {
		b := &catalog[i]
		if s.onCooldown(*b, tick) {
			continue
		}
		matched := 0
		for _, c := range b.Conditions {
			if metrics[c.Metric] >= c.Min {
				matched++
			}
		}
		if matched >= b.MinMatch {
			return b
		}
	}
	return nil
}

// Fire records the firing tick (arming the cooldown) and returns the
// mutations to apply, each stamped with Source and an ExpiresTick
// relative to tick (duration ticks after which the effect lapses).
func (s *Scanner) Fire(b BlackSwan, tick uint64, durationTicks uint64) []model.Mutation {
	s.lastFired[b.ID] = tick
	s.fired[b.ID] = true

	out := make([]model.Mutation, len(b.Mutations))
	for i, m := range b.Mutations {
		m.Source = string(b.ID)
		if durationTicks > 0 {
			m.ExpiresTick = tick + durationTicks
		}
		out[i] = m
	}
	return out
}
