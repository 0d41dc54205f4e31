// Package jobs defines the asynchronous import job model: an uploaded file
// is enqueued, a worker runs the import pipeline, and the caller polls for
// the resulting batch preview.
package jobs

import (
	"context"
	"time"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/parser"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ImportFileJob runs the import pipeline for one uploaded source file.
// Running a job only produces a preview batch; committing is a separate,
// synchronous call, so retrying a job is always safe.
type ImportFileJob struct {
	JobID string `json:"job_id"`

	// DocumentID and GCSURI identify the stored source file.
	DocumentID string `json:"document_id"`
	GCSURI     string `json:"gcs_uri"`

	// Format selects the parser; Mapping and LocationSuffix are the
	// format-specific options.
	Format         domain.Format         `json:"format"`
	Mapping        *parser.ColumnMapping `json:"mapping,omitempty"`
	LocationSuffix string                `json:"location_suffix,omitempty"`
	Location       string                `json:"location,omitempty"`
	Month          int                   `json:"month,omitempty"`
	Year           int                   `json:"year,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the failure message for failed jobs.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Batch is the pipeline result, populated on completion.
	Batch *domain.ImportBatch `json:"batch,omitempty"`

	// UsedMapping echoes the column mapping the delimited parser applied,
	// including a guessed one, so the caller can confirm or correct it and
	// re-run before committing.
	UsedMapping *parser.ColumnMapping `json:"used_mapping,omitempty"`
}

// Publisher enqueues import jobs. The abstraction allows swapping the
// in-memory queue for an external one without touching the handlers.
type Publisher interface {
	PublishImport(ctx context.Context, job *ImportFileJob) error
	Close() error
}

// Consumer drains the queue.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each one.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job for retry.
type JobHandler func(ctx context.Context, job *ImportFileJob) error

// JobStore tracks job state for polling.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportFileJob) error
	GetJob(ctx context.Context, jobID string) (*ImportFileJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportFileJob, error)
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}
