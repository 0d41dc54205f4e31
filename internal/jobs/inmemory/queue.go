package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/jobs"
)

// Queue is a channel-backed import job queue, safe for concurrent use.
// Suitable for single-instance deployments; a multi-instance deployment
// would swap in an external queue behind the same interfaces.
type Queue struct {
	jobChan   chan *jobs.ImportFileJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool
}

// NewQueue creates a queue. bufferSize bounds how many jobs can wait before
// PublishImport blocks.
func NewQueue(bufferSize int, store jobs.JobStore) *Queue {
	return &Queue{
		jobChan:   make(chan *jobs.ImportFileJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   4,
	}
}

// PublishImport enqueues an import job for asynchronous processing.
func (q *Queue) PublishImport(ctx context.Context, job *jobs.ImportFileJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start launches the worker pool. The handler runs concurrently, one job
// per worker. Imports share no mutable state (each takes its own chart
// snapshot), so concurrency is safe by construction.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes one job with retry. Re-running an import job is safe:
// it only produces a preview, never a commit.
func (q *Queue) processJob(ctx context.Context, job *jobs.ImportFileJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Error = err.Error()
		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying

			backoff := time.Duration(job.RetryCount) * time.Second
			time.AfterFunc(backoff, func() {
				job.Status = jobs.JobStatusPending
				job.StartedAt = nil
				job.CompletedAt = nil
				_ = q.PublishImport(ctx, job)
			})
		} else {
			job.Status = jobs.JobStatusFailed
		}
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop stops the queue and waits for in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the queue and releases resources.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
