// Package snapshot implements whole-state save/load (spec.md §4.9, §6):
// a self-describing, versioned binary format with a header, a manifest
// of per-table/resource sections, the sections themselves, and a
// trailing content hash — generalized from the teacher's
// engine/recorder.go Recorder/Player pair (there: one JSON frame per
// tick; here: one binary section per worldstore table, written on
// demand at checkpoints rather than every tick).
package snapshot

import "encoding/binary"

// Magic is the save file's fixed magic number (spec.md §6: "COLY",
// shared with the sandbox ABI header's magic).
const Magic uint32 = 0x434F4C59

// FormatVersion is this package's on-disk layout version.
const FormatVersion uint32 = 1

// KernelVersion is the (major, minor, patch) kernel build version
// stamped into every snapshot, so a loader can refuse or warn on a
// save file produced by an incompatible kernel build.
type KernelVersion struct {
	Major, Minor, Patch uint16
}

// Header is the fixed-size prefix of a save file (spec.md §6).
type Header struct {
	Magic         uint32
	FormatVersion uint32
	Kernel        KernelVersion
	Seed          uint64
	Tick          uint64
	FeatureFlags  uint64
	SectionCount  uint32
}

// headerLen is the encoded size of Header: magic(4) + format_version(4)
// + kernel(2+2+2, padded to 8 for alignment) + seed(8) + tick(8) +
// feature_flags(8) + section_count(4).
const headerLen = 4 + 4 + 8 + 8 + 8 + 8 + 4

func (h Header) encode() []byte {
	buf := make([]byte, headerLen)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.FormatVersion)
	binary.LittleEndian.PutUint16(buf[8:10], h.Kernel.Major)
	binary.LittleEndian.PutUint16(buf[10:12], h.Kernel.Minor)
	binary.LittleEndian.PutUint16(buf[12:14], h.Kernel.Patch)
	// buf[14:16] padding
	binary.LittleEndian.PutUint64(buf[16:24], h.Seed)
	binary.LittleEndian.PutUint64(buf[24:32], h.Tick)
	binary.LittleEndian.PutUint64(buf[32:40], h.FeatureFlags)
	binary.LittleEndian.PutUint32(buf[40:44], h.SectionCount)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerLen {
		return Header{}, errTruncated("header")
	}
	h := Header{
		Magic:         binary.LittleEndian.Uint32(buf[0:4]),
		FormatVersion: binary.LittleEndian.Uint32(buf[4:8]),
		Kernel: KernelVersion{
			Major: binary.LittleEndian.Uint16(buf[8:10]),
			Minor: binary.LittleEndian.Uint16(buf[10:12]),
			Patch: binary.LittleEndian.Uint16(buf[12:14]),
		},
		Seed:         binary.LittleEndian.Uint64(buf[16:24]),
		Tick:         binary.LittleEndian.Uint64(buf[24:32]),
		FeatureFlags: binary.LittleEndian.Uint64(buf[32:40]),
		SectionCount: binary.LittleEndian.Uint32(buf[40:44]),
	}
	if h.Magic != Magic {
		return Header{}, errUnknownMagic(h.Magic)
	}
	return h, nil
}

// ManifestEntry describes one section's placement within the file
// (spec.md §6: "{ section_id, section_version, offset, length }").
type ManifestEntry struct {
	SectionID      uint32
	SectionVersion uint32
	Offset         uint64
	Length         uint64
}

// manifestEntryLen is 4+4+8+8 = 24 bytes, matching spec.md §6 exactly.
const manifestEntryLen = 4 + 4 + 8 + 8

func (m ManifestEntry) encode() []byte {
	buf := make([]byte, manifestEntryLen)
	binary.LittleEndian.PutUint32(buf[0:4], m.SectionID)
	binary.LittleEndian.PutUint32(buf[4:8], m.SectionVersion)
	binary.LittleEndian.PutUint64(buf[8:16], m.Offset)
	binary.LittleEndian.PutUint64(buf[16:24], m.Length)
	return buf
}

func decodeManifestEntry(buf []byte) ManifestEntry {
	return ManifestEntry{
		SectionID:      binary.LittleEndian.Uint32(buf[0:4]),
		SectionVersion: binary.LittleEndian.Uint32(buf[4:8]),
		Offset:         binary.LittleEndian.Uint64(buf[8:16]),
		Length:         binary.LittleEndian.Uint64(buf[16:24]),
	}
}

// Section IDs, one per worldstore table/resource (spec.md §6 "entity
// tables, resources"). New tables get new trailing IDs; never renumber
// an existing one, since SectionID is a persisted on-disk identity.
const (
	SectionWorkyards uint32 = iota
	SectionWorkers
	SectionJobs
	SectionPipelines
	SectionOps
	SectionMutations
	SectionResources
	SectionResearch
	SectionHistory
)

type errTruncated string

func (e errTruncated) Error() string { return "snapshot: truncated " + string(e) }

type errUnknownMagic uint32

func (e errUnknownMagic) Error() string {
	return "snapshot: unknown magic number in header"
}
