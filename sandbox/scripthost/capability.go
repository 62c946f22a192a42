// Package scripthost implements the scripted event executor (spec.md
// §4.8): event-hook callbacks written in JavaScript, run on
// github.com/dop251/goja (grounded on the pack's
// joeycumines-go-utilpkg/goja-eventloop, which wires goja as the actual
// VM behind an event-driven host). Host capabilities are exposed as
// capability-gated globals, never native closures the script could use
// to escape its sandboxed view (§5 "no shared mutable memory between
// sandbox and kernel").
package scripthost

// Capability is a single bit gating one host function scripthost exposes
// into the JS global object (spec.md §4.8's get_tick/get_kpi/log/
// enqueue_job/register/random/save_state/load_state).
type Capability uint64

const (
	CapLog Capability = 1 << iota
	CapTickRead
	CapKPIRead
	CapJobEnqueue
	CapRegister
	CapRandom
	CapSaveState
	CapLoadState
)

// Has reports whether mask grants cap.
func (mask Capability) Has(cap Capability) bool {
	return mask&cap != 0
}
