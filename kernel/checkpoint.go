package kernel

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/ftahirops/colonysim/model"
	"github.com/ftahirops/colonysim/snapshot"
)

// sectionVersion is the current on-disk version for every section this
// build writes; a loader supplies migrators for anything older through
// snapshot.Player.Schemas (see snapshot.SectionSchema).
const sectionVersion = 1

// buildSnapshotSections encodes every worldstore table into one section
// per spec.md §6's manifest, JSON-encoded in SortedXIDs order so two
// runs with identical state produce byte-identical payloads (P1).
func (k *Kernel) buildSnapshotSections() []snapshot.Section {
	s := k.Store

	workers := make([]model.Worker, 0, len(s.Workers))
	for _, id := range s.SortedWorkerIDs() {
		workers = append(workers, *s.Workers[id])
	}
	workyards := make([]model.Workyard, 0, len(s.Workyards))
	for _, id := range s.SortedWorkyardIDs() {
		workyards = append(workyards, *s.Workyards[id])
	}
	jobs := make([]model.Job, 0, len(s.Jobs))
	for _, id := range s.SortedJobIDs() {
		jobs = append(jobs, *s.Jobs[id])
	}

	return []snapshot.Section{
		{ID: snapshot.SectionWorkers, Version: sectionVersion, Payload: mustJSON(workers)},
		{ID: snapshot.SectionWorkyards, Version: sectionVersion, Payload: mustJSON(workyards)},
		{ID: snapshot.SectionJobs, Version: sectionVersion, Payload: mustJSON(jobs)},
		{ID: snapshot.SectionPipelines, Version: sectionVersion, Payload: mustJSON(s.Pipelines)},
		{ID: snapshot.SectionOps, Version: sectionVersion, Payload: mustJSON(s.Ops)},
		{ID: snapshot.SectionMutations, Version: sectionVersion, Payload: mustJSON(s.Mutations)},
		{ID: snapshot.SectionResources, Version: sectionVersion, Payload: mustJSON(s.Resources)},
		{ID: snapshot.SectionResearch, Version: sectionVersion, Payload: mustJSON(s.Research)},
	}
}

// mustJSON encodes v, panicking only on a programmer error (an
// unmarshalable field added to a model type) — never on run-time data,
// since every model type here is plain structs/maps/slices of
// JSON-safe values.
func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("kernel: snapshot payload marshal: " + err.Error())
	}
	return b
}

// sha256Sections hashes the concatenated section payloads for the
// Checkpoint event log entry, independent of the snapshot file's own
// trailer hash (which covers the whole file, header included) — this
// one lets a replay tool confirm "the state at tick N matches the
// checkpoint event without re-reading the snapshot file."
func sha256Sections(sections []snapshot.Section) [32]byte {
	var buf []byte
	for _, sec := range sections {
		buf = append(buf, sec.Payload...)
	}
	return sha256.Sum256(buf)
}
