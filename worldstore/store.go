// Package worldstore is the entity/component table for workers, workyards
// and jobs, plus the colony's global resource ledger. Cross-entity
// references are ids, not pointers (Design Notes: "entity-component
// storage with dense iteration... avoid pointer-heavy graphs"),
// generalizing the teacher's collector.Registry (a flat slice of
// handlers addressed by name) into a flat map-per-table addressed by id.
package worldstore

import (
	"sort"

	"github.com/ftahirops/colonysim/model"
)

// Store owns every entity table and the global resource ledger for one
// kernel run. It is exclusively owned by the tick loop (§5,
// "shared-resource policy") — nothing outside kernel.Kernel mutates it
// directly.
type Store struct {
	Workers   map[model.WorkerID]*model.Worker
	Workyards map[model.WorkyardID]*model.Workyard
	Jobs      map[model.JobID]*model.Job
	Pipelines map[model.PipelineID]model.PipelineSpec
	Ops       map[model.OpSpecID]model.OpSpec

	Resources model.GlobalResources
	Research  model.ResearchState

	// Mutations is the layered set of active research/Black-Swan effects.
	// Op/pipeline specs are never edited in place; pipeline.EffectiveOpSpec
	// and pipeline.EffectivePipelineSpec fold this slice over the base
	// spec on demand (Design Notes: "effective op/pipeline spec").
	Mutations []model.Mutation
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		Workers:   make(map[model.WorkerID]*model.Worker),
		Workyards: make(map[model.WorkyardID]*model.Workyard),
		Jobs:      make(map[model.JobID]*model.Job),
		Pipelines: make(map[model.PipelineID]model.PipelineSpec),
		Ops:       make(map[model.OpSpecID]model.OpSpec),
		Research:  model.NewResearchState(),
	}
}

// AddWorker registers a worker and attaches it to its yard's roster.
func (s *Store) AddWorker(w *model.Worker) {
	s.Workers[w.ID] = w
	if yard, ok := s.Workyards[w.Yard]; ok {
		yard.Workers = append(yard.Workers, w.ID)
	}
}

// AddWorkyard registers a workyard.
func (s *Store) AddWorkyard(y *model.Workyard) {
	s.Workyards[y.ID] = y
}

// SortedWorkerIDs returns every worker id in ascending order, giving
// callers a deterministic iteration order independent of Go's randomized
// map iteration (required for P1/P7).
func (s *Store) SortedWorkerIDs() []model.WorkerID {
	ids := make([]model.WorkerID, 0, len(s.Workers))
	for id := range s.Workers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedWorkyardIDs returns every workyard id in ascending order.
func (s *Store) SortedWorkyardIDs() []model.WorkyardID {
	ids := make([]model.WorkyardID, 0, len(s.Workyards))
	for id := range s.Workyards {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedJobIDs returns every job id in ascending order.
func (s *Store) SortedJobIDs() []model.JobID {
	ids := make([]model.JobID, 0, len(s.Jobs))
	for id := range s.Jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// WorkersInYard returns the worker ids owned by yard, in ascending order.
func (s *Store) WorkersInYard(yard model.WorkyardID) []model.WorkerID {
	y, ok := s.Workyards[yard]
	if !ok {
		return nil
	}
	out := append([]model.WorkerID(nil), y.Workers...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PendingJobs returns jobs with Status == Pending, in ascending id order
// (scheduler policies re-sort this as needed; ascending-by-id is just the
// stable starting point for ties).
func (s *Store) PendingJobs() []*model.Job {
	var out []*model.Job
	for _, id := range s.SortedJobIDs() {
		j := s.Jobs[id]
		if j.Status == model.JobPending {
			out = append(out, j)
		}
	}
	return out
}

// AddMutation appends a newly triggered research/Black-Swan effect to the
// active set.
func (s *Store) AddMutation(m model.Mutation) {
	s.Mutations = append(s.Mutations, m)
}

// PruneExpiredMutations drops mutations whose ExpiresTick has passed,
// keeping the active set bounded over a long run.
func (s *Store) PruneExpiredMutations(tick uint64) {
	live := s.Mutations[:0]
	for _, m := range s.Mutations {
		if m.ExpiresTick == 0 || tick < m.ExpiresTick {
			live = append(live, m)
		}
	}
	s.Mutations = live
}

// IdleWorkersOfClass returns idle workers able to take a job targeting class.
func (s *Store) IdleWorkersOfClass(class model.WorkerClass) []*model.Worker {
	var out []*model.Worker
	for _, id := range s.SortedWorkerIDs() {
		w := s.Workers[id]
		if w.CanAssign() && w.Class == class {
			out = append(out, w)
		}
	}
	return out
}
