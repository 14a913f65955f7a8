package jobstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/petrijr/copilot/pkg/api"
)

// MemoryStore is a goroutine-safe Store backed by a map of immutable
// snapshots. It is the reference implementation: a single mutex serializes
// read-modify-write per call, and every mutation installs a fresh snapshot
// rather than touching the stored one.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*api.Job
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*api.Job),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context) (*api.Job, error) {
	job := newJob(uuid.NewString())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job
	return job, nil
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (*api.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, api.ErrJobNotFound
	}
	return job, nil
}

func (s *MemoryStore) TransitionState(ctx context.Context, jobID string, state api.JobState, message string) (*api.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.jobs[jobID]
	if !ok {
		return nil, api.ErrJobNotFound
	}
	if cur.State.Terminal() {
		return nil, api.ErrJobTerminal
	}

	next := cur.Clone()
	next.State = state
	next.Message = message
	next.Version = cur.Version + 1

	s.jobs[jobID] = next
	return next, nil
}

func (s *MemoryStore) CommitArtifact(ctx context.Context, jobID string, stage api.StageTag, artifact any) (*api.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.jobs[jobID]
	if !ok {
		return nil, api.ErrJobNotFound
	}
	if cur.State.Terminal() {
		return nil, api.ErrJobTerminal
	}

	next, err := applyArtifact(cur, stage, artifact)
	if err != nil {
		return nil, err
	}

	s.jobs[jobID] = next
	return next, nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*api.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Job
	for _, job := range s.jobs {
		if matches(job, filter) {
			result = append(result, job)
		}
	}
	return result, nil
}
