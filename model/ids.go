package model

import "github.com/google/uuid"

// WorkerID, WorkyardID, JobID, OpSpecID and PipelineID are distinct string
// types so entity references (ids, never pointers — see Design Notes on
// entity-component storage) can't be swapped by accident at call sites.
type WorkerID string
type WorkyardID string
type JobID string
type OpSpecID string
type PipelineID string
type TechID string
type BlackSwanID string

// NewID formats a uuid drawn from a deterministic substream reader as a
// plain string id. Callers pass an io.Reader backed by a named RNG
// substream (see package rng) so id assignment participates in the
// determinism invariant instead of drawing from crypto/rand.
func NewID(r interface {
	Read(p []byte) (int, error)
}) string {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		// r is a deterministic in-memory source; only failure mode is a
		// short read, which the substream reader never produces.
		panic("model: id source exhausted: " + err.Error())
	}
	return id.String()
}
