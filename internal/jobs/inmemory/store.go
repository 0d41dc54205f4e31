package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/jobs"
)

// Store is an in-memory JobStore, safe for concurrent use. State is lost on
// restart; a lost preview job is simply re-enqueued by the operator.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ImportFileJob
}

// NewStore creates an empty in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.ImportFileJob)}
}

// SaveJob saves or updates a job.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ImportFileJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ImportFileJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs retrieves jobs matching the filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ImportFileJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.ImportFileJob
	for _, job := range s.jobs {
		if filter.DocumentID != "" && job.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ImportFileJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)
