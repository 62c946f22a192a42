package snapshot

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sort"
)

// Section is one table/resource's encoded payload plus the format
// version it was encoded at.
type Section struct {
	ID      uint32
	Version uint32
	Payload []byte
}

// Recorder serializes a full snapshot to disk: header, manifest,
// sections in ascending SectionID order, trailer SHA-256 content hash over
// the header, manifest and sections (spec.md §6). Grounded on the teacher's
// Recorder/Player pair (engine/recorder.go), generalized from "append
// one JSON frame per tick" to "write one versioned binary file per
// checkpoint".
type Recorder struct {
	Kernel KernelVersion
}

// Save writes header+manifest+sections+trailer to path.
func (r Recorder) Save(path string, seed, tick uint64, featureFlags uint64, sections []Section) error {
	sorted := append([]Section(nil), sections...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	header := Header{
		Magic:         Magic,
		FormatVersion: FormatVersion,
		Kernel:        r.Kernel,
		Seed:          seed,
		Tick:          tick,
		FeatureFlags:  featureFlags,
		SectionCount:  uint32(len(sorted)),
	}

	body := header.encode()
	manifestOff := len(body)
	_ = manifestOff
	manifestLen := len(sorted) * manifestEntryLen
	body = append(body, make([]byte, manifestLen)...)

	sectionsStart := len(body)
	manifest := make([]ManifestEntry, len(sorted))
	for i, s := range sorted {
		off := uint64(len(body))
		body = append(body, s.Payload...)
		manifest[i] = ManifestEntry{
			SectionID:      s.ID,
			SectionVersion: s.Version,
			Offset:         off,
			Length:         uint64(len(s.Payload)),
		}
	}
	_ = sectionsStart

	headerLenLocal := headerLen
	for i, m := range manifest {
		copy(body[headerLenLocal+i*manifestEntryLen:headerLenLocal+(i+1)*manifestEntryLen], m.encode())
	}

	hash := sha256.Sum256(body)
	body = append(body, hash[:]...)

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}
