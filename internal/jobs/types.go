// Package jobs defines the asynchronous execution model for pipeline runs
// triggered over the API. A run job is queued, executed by a single worker
// and its state is pollable by job ID.
package jobs

import (
	"context"
	"time"

	"github.com/dfarias/escrow-etl/internal/pipeline"
)

// JobStatus is the lifecycle state of a run job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// RunJob is a queued pipeline run.
type RunJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// BalancesPath and WithdrawalsPath locate the two source extracts.
	// They may be local paths or gs:// URIs.
	BalancesPath    string `json:"balances_path"`
	WithdrawalsPath string `json:"withdrawals_path"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error carries the failure cause for failed jobs.
	Error string `json:"error,omitempty"`

	// Result is the pipeline outcome, present once the job finished. A
	// failed run still carries the logs collected before the failure.
	Result *pipeline.Result `json:"result,omitempty"`
}

// Publisher enqueues run jobs.
type Publisher interface {
	PublishRun(ctx context.Context, job *RunJob) error
	Close() error
}

// Consumer executes queued jobs.
type Consumer interface {
	// Start begins consuming jobs. The handler is invoked once per job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for the in-flight job to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. The returned result and error determine the
// job's final status.
type JobHandler func(ctx context.Context, job *RunJob) (*pipeline.Result, error)

// JobStore tracks job state for polling.
type JobStore interface {
	SaveJob(ctx context.Context, job *RunJob) error
	GetJob(ctx context.Context, jobID string) (*RunJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*RunJob, error)
}

// JobFilter restricts ListJobs output.
type JobFilter struct {
	Status JobStatus
	Limit  int
}
