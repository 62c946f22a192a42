package snapshot

import (
	"crypto/sha256"
	"fmt"
	"os"
)

// Migrator upgrades one section's payload by exactly one format-version
// step (spec.md §6: "explicit migration routines between adjacent
// versions"). A section more than one version behind is migrated by
// chaining Migrators for each intermediate version in turn.
type Migrator func(payload []byte) ([]byte, error)

// SectionSchema is one section's current version plus the chain of
// Migrators needed to bring an older on-disk version up to it, keyed by
// the version a Migrator accepts as input.
type SectionSchema struct {
	CurrentVersion uint32
	Migrators      map[uint32]Migrator // oldVersion -> migrate(oldVersion -> oldVersion+1)
}

// Player loads and verifies a save file written by Recorder.
type Player struct {
	Schemas map[uint32]SectionSchema // SectionID -> schema
}

// Load reads path, verifies magic and trailing content hash, and
// migrates every section forward to its current schema version.
// Unknown magic or a newer-than-supported section version is a load
// error per spec.md §6 ("reject unknown magic ... fail with a precise
// diagnostic when a section is newer than supported").
func (p Player) Load(path string) (Header, map[uint32]Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	if len(data) < 32 {
		return Header{}, nil, fmt.Errorf("snapshot: %s is too short to contain a trailer", path)
	}

	body, trailer := data[:len(data)-32], data[len(data)-32:]
	gotHash := sha256.Sum256(body)
	if string(gotHash[:]) != string(trailer) {
		return Header{}, nil, fmt.Errorf("snapshot: content hash mismatch in %s, file is corrupt", path)
	}

	header, err := decodeHeader(body)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: %s: %w", path, err)
	}

	manifest := make([]ManifestEntry, header.SectionCount)
	for i := range manifest {
		start := headerLen + i*manifestEntryLen
		end := start + manifestEntryLen
		if end > len(body) {
			return Header{}, nil, fmt.Errorf("snapshot: %s: truncated manifest entry %d", path, i)
		}
		manifest[i] = decodeManifestEntry(body[start:end])
	}

	out := make(map[uint32]Section, len(manifest))
	for _, m := range manifest {
		if int(m.Offset+m.Length) > len(body) {
			return Header{}, nil, fmt.Errorf("snapshot: %s: section %d offset/length out of bounds", path, m.SectionID)
		}
		payload := append([]byte(nil), body[m.Offset:m.Offset+m.Length]...)
		version := m.SectionVersion

		schema, known := p.Schemas[m.SectionID]
		if known {
			if version > schema.CurrentVersion {
				return Header{}, nil, fmt.Errorf(
					"snapshot: %s: section %d is version %d, newer than this kernel's supported version %d",
					path, m.SectionID, version, schema.CurrentVersion)
			}
			for version < schema.CurrentVersion {
				migrate, ok := schema.Migrators[version]
				if !ok {
					return Header{}, nil, fmt.Errorf(
						"snapshot: %s: section %d has no migration path from version %d to %d",
						path, m.SectionID, version, schema.CurrentVersion)
				}
				payload, err = migrate(payload)
				if err != nil {
					return Header{}, nil, fmt.Errorf("snapshot: %s: migrating section %d from v%d: %w", path, m.SectionID, version, err)
				}
				version++
			}
		}

		out[m.SectionID] = Section{ID: m.SectionID, Version: version, Payload: payload}
	}

	return header, out, nil
}
