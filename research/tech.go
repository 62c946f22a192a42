package research

import (
	"golang.org/x/exp/slices"

	"github.com/ftahirops/colonysim/model"
)

// Tech is one node of the tech tree: spend Cost research points, once
// every entry in Prereqs is Completed, to unlock Effects (§3 Research
// State, §4.6).
type Tech struct {
	ID      model.TechID
	Name    string
	Cost    int
	Prereqs []model.TechID
	Effects []model.Mutation
}

// Eligible reports whether tech can be unlocked: not already completed,
// every prerequisite satisfied, and enough points banked.
func Eligible(tech Tech, state model.ResearchState) bool {
	if state.Completed[tech.ID] {
		return false
	}
	if state.Points < tech.Cost {
		return false
	}
	for _, p := range tech.Prereqs {
		if !state.Completed[p] {
			return false
		}
	}
	return true
}

// Unlock deducts tech.Cost from state.Points, marks it Completed, and
// returns its effects stamped with Source=tech id for provenance and
// rollback (never applied destructively — see Mutation doc comment).
// Callers must have already checked Eligible.
func Unlock(tech Tech, state *model.ResearchState) []model.Mutation {
	state.Points -= tech.Cost
	state.Completed[tech.ID] = true
	delete(state.InProgress, tech.ID)

	out := make([]model.Mutation, len(tech.Effects))
	for i, m := range tech.Effects {
		m.Source = string(tech.ID)
		out[i] = m
	}
	return out
}

// SelectUnlockable returns every tech in tree that is currently Eligible,
// in ascending ID order — the deterministic order a kernel applies
// simultaneous unlocks in, when multiple techs become affordable the same
// tick (I5).
func SelectUnlockable(tree []Tech, state model.ResearchState) []Tech {
	var out []Tech
	for _, t := range tree {
		if Eligible(t, state) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b Tech) bool { return a.ID < b.ID })
	return out
}
