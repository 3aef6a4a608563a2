// Package data provides the storage adapters backing the reviewer services:
// the in-memory job store, the Postgres job archive and the Redis cache.
package data

import (
	"context"
	"sync"

	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
)

// MemoryJobStore is the live job state: a mapping of job id to Job. It is
// the only shared mutable state in the system. Mutations to a given job are
// serialized through a per-job mutex; reads clone under the same mutex so a
// poller always observes a consistent snapshot. Critical sections only cover
// field updates, never analyzer or payment calls, so reads do not block on
// in-flight executions.
type MemoryJobStore struct {
	mu           sync.RWMutex
	jobs         map[string]*jobEntry
	timeProvider TimeProvider
}

type jobEntry struct {
	mu  sync.Mutex
	job *model.Job
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return NewMemoryJobStoreWithClock(&RealTimeProvider{})
}

// NewMemoryJobStoreWithClock creates a store with an injectable clock for tests.
func NewMemoryJobStoreWithClock(tp TimeProvider) *MemoryJobStore {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &MemoryJobStore{
		jobs:         make(map[string]*jobEntry),
		timeProvider: tp,
	}
}

// Create inserts a new job. Fails if the id already exists.
func (s *MemoryJobStore) Create(_ context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return apperrors.Internal("job id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return apperrors.Internalf("job %s already exists", job.ID)
	}

	now := s.timeProvider.Now()
	cp := job.Clone()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.jobs[job.ID] = &jobEntry{job: cp}
	return nil
}

// Get returns a snapshot of the job.
func (s *MemoryJobStore) Get(_ context.Context, id string) (*model.Job, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job.Clone(), nil
}

// Update applies fn to the job under its writer lock. fn receives a working
// copy; the stored job is swapped only when fn succeeds, so an aborted
// mutation is never observable.
func (s *MemoryJobStore) Update(
	_ context.Context,
	id string,
	fn func(job *model.Job) error,
) (*model.Job, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.job.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.timeProvider.Now()
	entry.job = next
	return next.Clone(), nil
}

// Len returns the number of stored jobs.
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *MemoryJobStore) entry(id string) (*jobEntry, error) {
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	return entry, nil
}
