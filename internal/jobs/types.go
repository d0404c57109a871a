package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeNotionExport copies one recorded transaction to the Notion database.
	JobTypeNotionExport JobType = "notion_export"
	// JobTypeTurnArchive writes one chat turn record to the archive bucket.
	JobTypeTurnArchive JobType = "turn_archive"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries is applied to jobs published without MaxRetries.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned by JobStore lookups for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// ExportJob is a background side effect of a chat turn. Jobs never influence
// the chat response; they only copy data that was already produced.
type ExportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	Type JobType `json:"type"`

	// UserID owns the job; only that user can see it through the API.
	UserID string `json:"user_id"`

	// Payload is the JSON body the handler for Type decodes.
	Payload json.RawMessage `json:"payload"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// NewJob builds a pending job of type t whose payload is v encoded as JSON.
func NewJob(t JobType, userID string, v any) (*ExportJob, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("NewJob: encoding %s payload: %w", t, err)
	}
	return &ExportJob{Type: t, UserID: userID, Payload: payload}, nil
}

// Decode unmarshals the job payload into v.
func (j *ExportJob) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", j.Type, err)
	}
	return nil
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	Publish(ctx context.Context, job *ExportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job *ExportJob) error

// Mux routes jobs to a handler by type.
type Mux map[JobType]JobHandler

// Handle dispatches job to its registered handler. A job of an unregistered
// type returns an error like any other failure.
func (m Mux) Handle(ctx context.Context, job *ExportJob) error {
	h, ok := m[job.Type]
	if !ok {
		return fmt.Errorf("no handler registered for job type %q", job.Type)
	}
	return h(ctx, job)
}

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExportJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ExportJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Type   JobType
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
