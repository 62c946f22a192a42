package scripthost

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// ErrBudgetExceeded is returned (wrapped) when a callback is interrupted
// for exceeding its step budget.
var ErrBudgetExceeded = errors.New("scripthost: instruction budget exceeded")

// HostContext wires the sandboxed runtime's capability-gated globals back
// to the kernel. Every field is optional; Capability gates whether the
// corresponding global is installed at all, so a nil func for a granted
// capability is a host wiring bug, not something the script can probe.
type HostContext struct {
	Tick       func() uint64
	KPI        func(name string) float64
	Log        func(msg string)
	EnqueueJob func(pipelineID string) (string, error)
	Register   func(eventKind, fnName string)
	Random     func() float64
	SaveState  func() (string, error)
	LoadState  func(state string) error
}

// Runtime is one scripted event host's goja.Runtime plus its capability
// mask and step budget, generalized from the pack's goja-eventloop
// wiring pattern (register host closures as JS globals, drive the VM
// synchronously, never hand out the raw runtime to guest code).
type Runtime struct {
	vm         *goja.Runtime
	caps       Capability
	stepCount  uint64
	stepBudget uint64
}

// New builds a Runtime with caps granted out of ctx. Only the globals a
// granted capability covers are installed; calling an ungranted host
// function from script is a plain ReferenceError, not a silent no-op.
func New(caps Capability, ctx HostContext, stepBudget uint64) *Runtime {
	r := &Runtime{vm: goja.New(), caps: caps, stepBudget: stepBudget}

	if caps.Has(CapLog) && ctx.Log != nil {
		r.vm.Set("log", func(msg string) {
			r.chargeStep()
			ctx.Log(msg)
		})
	}
	if caps.Has(CapTickRead) && ctx.Tick != nil {
		r.vm.Set("get_tick", func() uint64 {
			r.chargeStep()
			return ctx.Tick()
		})
	}
	if caps.Has(CapKPIRead) && ctx.KPI != nil {
		r.vm.Set("get_kpi", func(name string) float64 {
			r.chargeStep()
			return ctx.KPI(name)
		})
	}
	if caps.Has(CapJobEnqueue) && ctx.EnqueueJob != nil {
		r.vm.Set("enqueue_job", func(pipelineID string) (string, error) {
			r.chargeStep()
			return ctx.EnqueueJob(pipelineID)
		})
	}
	if caps.Has(CapRegister) && ctx.Register != nil {
		r.vm.Set("register", func(eventKind, fnName string) {
			r.chargeStep()
			ctx.Register(eventKind, fnName)
		})
	}
	if caps.Has(CapRandom) && ctx.Random != nil {
		r.vm.Set("random", func() float64 {
			r.chargeStep()
			return ctx.Random()
		})
	}
	if caps.Has(CapSaveState) && ctx.SaveState != nil {
		r.vm.Set("save_state", func() (string, error) {
			r.chargeStep()
			return ctx.SaveState()
		})
	}
	if caps.Has(CapLoadState) && ctx.LoadState != nil {
		r.vm.Set("load_state", func(state string) error {
			r.chargeStep()
			return ctx.LoadState(state)
		})
	}
	return r
}

// chargeStep is called from every host global; it is the only step
// counter scripthost has, since goja exposes no native instruction
// counter. A script looping without ever calling a host function cannot
// be bounded this way — acceptable here because every callback this host
// runs exists specifically to call into the kernel (DESIGN.md: "step
// budget is a host-call budget, not a bytecode budget"). wallGuard below
// is the backstop for pure-compute runaway scripts.
func (r *Runtime) chargeStep() {
	r.stepCount++
	if r.stepCount > r.stepBudget {
		r.vm.Interrupt(ErrBudgetExceeded)
	}
}

// wallGuardDuration is the safety-valve timeout for a callback that never
// calls a host function and so never trips chargeStep. It does not
// affect the deterministic replay path: identical host-call sequences
// hit the step budget identically on every replay, and a script that
// makes zero host calls has no observable effect on worldstore state
// regardless of how long it spins.
const wallGuardDuration = 250 * time.Millisecond

// Run compiles and executes src, enforcing the step budget via chargeStep
// and a wall-clock backstop for callbacks that make no host calls at all.
func (r *Runtime) Run(src string) (goja.Value, error) {
	timer := time.AfterFunc(wallGuardDuration, func() {
		r.vm.Interrupt(fmt.Errorf("scripthost: wall-clock guard tripped after %s", wallGuardDuration))
	})
	defer timer.Stop()

	v, err := r.vm.RunString(src)
	if err != nil {
		var ix *goja.InterruptedError
		if errors.As(err, &ix) {
			return nil, fmt.Errorf("scripthost: callback interrupted: %w", err)
		}
		return nil, fmt.Errorf("scripthost: callback failed: %w", err)
	}
	return v, nil
}

// StepsUsed reports how many host calls this Runtime has charged so far.
func (r *Runtime) StepsUsed() uint64 { return r.stepCount }
