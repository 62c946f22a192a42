// Package binhost implements the binary-module executor for custom ops
// (spec.md §4.8, §6 "Sandbox ABI"). Go plugins/cgo cannot give a
// portable, fuel-capped, deterministic host, so the ABI is an in-process
// interpreter over a tiny bytecode running against a plain []byte guest
// memory region — the fixed header layout below matches spec.md §6
// byte-for-byte even though there is no real pointer arithmetic
// underneath it.
package binhost

import "encoding/binary"

// Magic is the ABI header's fixed magic number (spec.md §6: 0x434F4C59,
// "COLY" read little-endian as a u32).
const Magic uint32 = 0x434F4C59

// ABIVersion is the header layout version this host implements.
const ABIVersion uint32 = 1

// Status is the module entry function's return code.
type Status uint32

const (
	StatusSuccess Status = iota
	StatusGeneralError
	StatusOutputTooSmall
	StatusInvalidInput
	StatusCapabilityDenied
	StatusSoftFault
	StatusStickyFault
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusGeneralError:
		return "GeneralError"
	case StatusOutputTooSmall:
		return "OutputTooSmall"
	case StatusInvalidInput:
		return "InvalidInput"
	case StatusCapabilityDenied:
		return "CapabilityDenied"
	case StatusSoftFault:
		return "SoftFault"
	case StatusStickyFault:
		return "StickyFault"
	}
	return "Unknown"
}

// Capability is a single bit of the ABI header's capability mask,
// gating which imports a module may call (spec.md §4.8).
type Capability uint64

const (
	CapLog Capability = 1 << iota
	CapRNG
	CapKPIRead
	CapJobEnqueue
	CapTickRead
)

// Has reports whether mask grants cap.
func (mask Capability) Has(cap Capability) bool {
	return mask&cap != 0
}

// OpContext is the op_ctx_ptr structure the ABI header points at
// (spec.md §6): the call's tick/worker/job identity, the op's base
// fault probability, a per-call RNG seed and the capability mask.
type OpContext struct {
	Tick         uint64
	WorkerID     string
	JobID        string
	PipelineID   string
	OpIndex      int
	PFault       float32
	RNGSeed      uint64
	Capabilities Capability
}

// Header mirrors spec.md §6's binary ABI header. input_ptr/output_ptr
// are offsets into Memory's scratch buffer, not real addresses.
type Header struct {
	Magic         uint32
	Version       uint32
	InputPtr      uint32
	InputLen      uint32
	OutputPtr     uint32
	OutputCap     uint32
	BytesWritten  uint32
	ReturnCode    uint32
}

// Encode writes h in the fixed little-endian layout spec.md §6
// prescribes, for modules that serialize it into guest memory.
func (h Header) Encode() []byte {
	buf := make([]byte, 4*8)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.InputPtr)
	binary.LittleEndian.PutUint32(buf[12:16], h.InputLen)
	binary.LittleEndian.PutUint32(buf[16:20], h.OutputPtr)
	binary.LittleEndian.PutUint32(buf[20:24], h.OutputCap)
	binary.LittleEndian.PutUint32(buf[24:28], h.BytesWritten)
	binary.LittleEndian.PutUint32(buf[28:32], h.ReturnCode)
	return buf
}
