// Package resources implements the colony's power/heat/bandwidth/VRAM/
// PCIe accounting and the scalar corruption field (spec.md §3 invariants
// I2/I3/I6, §4.5). It is grounded on the teacher's engine.ComputeCapacity
// (headroom-from-totals shape) and engine's rate/throttle calculations.
package resources

import (
	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/worldstore"
)

// ThrottleFloor is the minimum effective progress multiplier a yard can be
// driven to by thermal throttling (§4.3: "a floor at the max temperature").
const ThrottleFloor = 0.1

// PowerDraw sums per-op power_per_tick for every Running job's current op,
// satisfying I2 ("sum of per-yard power_draw equals global power_draw") by
// construction — there is only ever one global sum, computed once.
func PowerDraw(store *worldstore.Store, opPowerPerTick func(model.JobID) float64) float64 {
	var total float64
	for _, id := range store.SortedJobIDs() {
		j := store.Jobs[id]
		if j.Status == model.JobRunning {
			total += opPowerPerTick(j.ID)
		}
	}
	return total
}

// PowerThrottle computes the deficit ratio and the proportional throttle
// factor to apply to every running op's progress this tick, per §4.5:
// "If power_draw > power_capacity: compute deficit ratio; apply throttle."
// Returns (throttleFactor in (0,1], deficit bool).
func PowerThrottle(draw, capacity float64) (float64, bool) {
	if capacity <= 0 || draw <= capacity {
		return 1.0, false
	}
	factor := capacity / draw
	if factor < 0 {
		factor = 0
	}
	return factor, true
}

// BandwidthThrottle mirrors PowerThrottle for the aggregate bandwidth
// ledger, applied only to I/O-class ops per §4.5.
func BandwidthThrottle(used, capacity float64) (float64, bool) {
	return PowerThrottle(used, capacity)
}

// BandwidthDraw sums per-op io_bytes_per_tick for every Running job,
// satisfying I2 ("same for bandwidth") the same way PowerDraw satisfies
// it for power. opIOBytesPerTick is expected to return 0 for a job whose
// current op does not target the I/O class, so only I/O-class ops ever
// contribute to the aggregate.
func BandwidthDraw(store *worldstore.Store, opIOBytesPerTick func(model.JobID) float64) float64 {
	var total float64
	for _, id := range store.SortedJobIDs() {
		j := store.Jobs[id]
		if j.Status == model.JobRunning {
			total += opIOBytesPerTick(j.ID)
		}
	}
	return total
}

// UpdateYardTemperature advances a yard's local temperature by one tick:
// ΔT = heat_in − cooling_coefficient·(T − T_ambient), clamped to [ambient,
// max] (§4.5).
func UpdateYardTemperature(y *model.Workyard, heatIn float64) {
	t := y.Thermal
	delta := heatIn - t.CoolingCoeff*(y.LocalTemp-t.AmbientTemp)
	y.LocalTemp += delta
	if y.LocalTemp < t.AmbientTemp {
		y.LocalTemp = t.AmbientTemp
	}
	if y.LocalTemp > t.MaxTemp {
		y.LocalTemp = t.MaxTemp
	}
}

// VRAMAvailable reports whether a GpuFarm yard has at least need free VRAM.
func VRAMAvailable(y *model.Workyard, need uint64) bool {
	return y.Kind == model.KindGpuFarm && y.GPU.VRAMFree >= need
}

// PCIeAvailable reports whether a GpuFarm yard has at least need free PCIe
// bandwidth.
func PCIeAvailable(y *model.Workyard, need uint64) bool {
	return y.Kind == model.KindGpuFarm && (y.GPU.PCIeBWTotal-y.GPU.PCIeBWInUse) >= need
}

// ReserveGPU allocates VRAM/PCIe for a starting op; callers must have
// already checked VRAMAvailable/PCIeAvailable (admission control, §4.2).
func ReserveGPU(y *model.Workyard, vram, pcie uint64) {
	y.GPU.VRAMFree -= vram
	y.GPU.PCIeBWInUse += pcie
}

// ReleaseGPU frees VRAM/PCIe reserved by a completed or aborted op.
func ReleaseGPU(y *model.Workyard, vram, pcie uint64) {
	y.GPU.VRAMFree += vram
	if y.GPU.VRAMFree > y.GPU.VRAMTotal {
		y.GPU.VRAMFree = y.GPU.VRAMTotal
	}
	if pcie > y.GPU.PCIeBWInUse {
		pcie = y.GPU.PCIeBWInUse
	}
	y.GPU.PCIeBWInUse -= pcie
}

// CorruptionParams are the tunable coefficients for corruption field
// evolution (§4.5): df/dt = γ·faults − δ·f + contributions − mitigation.
type CorruptionParams struct {
	Gamma float64 // growth per fault event this tick
	Delta float64 // decay rate
}

// DefaultCorruptionParams are conservative defaults keeping S1's 1000-tick,
// zero-fault scenario inside corruption_field ∈ [0.00, 0.05].
var DefaultCorruptionParams = CorruptionParams{Gamma: 0.02, Delta: 0.01}

// UpdateCorruption advances the global corruption_field by one tick and
// clamps to [0,1] (I6). eventContributions and researchMitigation are the
// additive terms from fired Black Swans and completed mitigating tech,
// both already resolved for this tick only (no leakage from later
// stages — I6 "depends only on committed events within the tick").
//
// Per DESIGN.md Open Question #1, per-worker PersonalCorruption is pulled
// toward the field afterward by PullWorkerCorruption and never feeds back
// into this computation within the same tick.
func UpdateCorruption(field float64, params CorruptionParams, faultEventsThisTick int, eventContributions, researchMitigation float64) float64 {
	df := params.Gamma*float64(faultEventsThisTick) - params.Delta*field + eventContributions - researchMitigation
	field += df
	if field < 0 {
		field = 0
	}
	if field > 1 {
		field = 1
	}
	return field
}

// PullWorkerCorruption nudges a worker's personal corruption toward the
// global field by a fixed fraction, applied only while the worker is
// Running (§3 Worker.personal_corruption; see DESIGN.md Open Question #1).
func PullWorkerCorruption(w *model.Worker, field, pull float64) {
	if w.State.Kind != model.WorkerRunning {
		return
	}
	w.PersonalCorruption += pull * (field - w.PersonalCorruption)
	if w.PersonalCorruption < 0 {
		w.PersonalCorruption = 0
	}
	if w.PersonalCorruption > 1 {
		w.PersonalCorruption = 1
	}
}
