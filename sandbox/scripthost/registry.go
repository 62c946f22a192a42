package scripthost

import "sort"

// Callback is one registered JS event hook (spec.md §4.8 "register").
// Capabilities gates which host globals New installs for this callback's
// Runtime — a callback is never granted more than its own registration
// specifies, even when it self-registers another callback via "register".
type Callback struct {
	ID           string
	Kind         string // event kind name, e.g. "on_fault", "on_tick", "on_swan"
	Source       string
	Capabilities Capability
}

// PersistentDisableThreshold is how many tick-scoped failures a callback
// accumulates across its lifetime before Registry disables it for good,
// rather than only for the tick it failed on (spec.md §4.8 "repeated
// failures disable the callback").
const PersistentDisableThreshold = 3

// Registry tracks every registered callback, in registration order
// (deterministic dispatch, §P1), plus per-callback failure counts and
// disable state. Grounded on the teacher's alertState escalation
// bookkeeping in engine/alert.go, generalized from "consecutive breach
// count" to "consecutive callback failure count".
type Registry struct {
	order       []string
	byID        map[string]*Callback
	byKind      map[string][]string
	failures    map[string]int
	disabled    map[string]bool
	tickFailed  map[string]bool
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:       map[string]*Callback{},
		byKind:     map[string][]string{},
		failures:   map[string]int{},
		disabled:   map[string]bool{},
		tickFailed: map[string]bool{},
	}
}

// Register adds cb, replacing any prior registration with the same ID.
func (r *Registry) Register(cb Callback) {
	if _, exists := r.byID[cb.ID]; !exists {
		r.order = append(r.order, cb.ID)
		r.byKind[cb.Kind] = append(r.byKind[cb.Kind], cb.ID)
	}
	copyCB := cb
	r.byID[cb.ID] = &copyCB
}

// ResetTick clears the per-tick failure flags; call once per tick before
// dispatching events, so a callback that failed last tick gets another
// chance this tick unless it has crossed PersistentDisableThreshold.
func (r *Registry) ResetTick() {
	r.tickFailed = map[string]bool{}
}

// ForKind returns the callbacks registered for kind, in registration
// order, skipping any disabled ones (permanently or for this tick).
func (r *Registry) ForKind(kind string) []Callback {
	ids := r.byKind[kind]
	out := make([]Callback, 0, len(ids))
	for _, id := range ids {
		if r.disabled[id] || r.tickFailed[id] {
			continue
		}
		out = append(out, *r.byID[id])
	}
	return out
}

// ReportFailure records that cb.ID failed this tick. Once a callback's
// lifetime failure count reaches PersistentDisableThreshold it is
// disabled for every future tick, not just the current one.
func (r *Registry) ReportFailure(id string) {
	r.tickFailed[id] = true
	r.failures[id]++
	if r.failures[id] >= PersistentDisableThreshold {
		r.disabled[id] = true
	}
}

// IsDisabled reports whether id is permanently disabled.
func (r *Registry) IsDisabled(id string) bool { return r.disabled[id] }

// Kinds returns every distinct event kind with at least one registration,
// sorted for deterministic iteration by callers that fan out over kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
