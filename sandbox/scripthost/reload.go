package scripthost

import "fmt"

// Reloader owns the hot-reload lifecycle for one callback's Runtime:
// serialize its state out, swap in new source, and roll back to the
// prior working Runtime if the new source fails to even compile/run its
// top level (spec.md §4.8 "hot reload ... failed reload rolls back").
type Reloader struct {
	caps       Capability
	ctx        HostContext
	stepBudget uint64

	current *Runtime
	source  string
}

// NewReloader wraps an initial, already-working (caps, ctx, stepBudget,
// source) combination.
func NewReloader(caps Capability, ctx HostContext, stepBudget uint64, source string) (*Reloader, error) {
	rt := New(caps, ctx, stepBudget)
	if _, err := rt.Run(source); err != nil {
		return nil, fmt.Errorf("scripthost: initial load failed: %w", err)
	}
	return &Reloader{caps: caps, ctx: ctx, stepBudget: stepBudget, current: rt, source: source}, nil
}

// Current returns the live, working Runtime.
func (r *Reloader) Current() *Runtime { return r.current }

// Reload attempts to replace the live Runtime's source with newSource.
// It builds and runs the replacement against a fresh Runtime first; only
// on success does it become Current. On failure the prior Runtime is
// left untouched and the error is returned — the caller's view of
// "current" never observes a half-applied reload.
func (r *Reloader) Reload(newSource string) error {
	candidate := New(r.caps, r.ctx, r.stepBudget)

	if r.ctx.SaveState != nil && r.ctx.LoadState != nil {
		state, err := r.ctx.SaveState()
		if err != nil {
			return fmt.Errorf("scripthost: state snapshot before reload failed: %w", err)
		}
		if _, err := candidate.Run(newSource); err != nil {
			return fmt.Errorf("scripthost: reload rejected, keeping prior callback: %w", err)
		}
		if err := r.ctx.LoadState(state); err != nil {
			return fmt.Errorf("scripthost: reload rejected, state restore failed: %w", err)
		}
	} else if _, err := candidate.Run(newSource); err != nil {
		return fmt.Errorf("scripthost: reload rejected, keeping prior callback: %w", err)
	}

	r.current = candidate
	r.source = newSource
	return nil
}

// Source returns the currently active callback source.
func (r *Reloader) Source() string { return r.source }
