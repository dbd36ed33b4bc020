// Package queue provides processing-job queue management: claiming pending
// ProcessingJob rows, running one pipeline stage at a time, heartbeating, and
// orphan recovery.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/ent/processingjob"
	"github.com/axonote/pipeline/pkg/events"
)

// EventPublisher is the subset of *events.EventPublisher the queue package
// depends on, kept as an interface so tests can inject a fake. May be nil,
// in which case publish calls are skipped (streaming disabled).
type EventPublisher interface {
	PublishSessionStatus(ctx context.Context, classSessionID string, payload events.SessionStatusPayload) error
	PublishStageStatus(ctx context.Context, classSessionID string, payload events.StageStatusPayload) error
}

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no pending jobs are in the queue.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrAtCapacity indicates the global concurrent job limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// JobExecutor is the interface for processing-job execution.
//
// The executor owns a single stage transition: given a claimed job, it runs
// the recognizer for job.CurrentStage (or the first stage of job.RequestedKind
// if CurrentStage is unset), persists the stage's result row, advances the
// owning ClassSession's pipeline_state, and either re-enqueues the job for its
// next stage or returns a terminal JobResult.
//
// The executor writes results PROGRESSIVELY during execution, not at the end.
// The worker only handles: claiming, heartbeat, terminal status update, and
// event publication.
type JobExecutor interface {
	Execute(ctx context.Context, job *ent.ProcessingJob) *JobResult
}

// JobResult is lightweight — just the terminal state for this claim. A job
// that successfully completes one stage but has more stages remaining comes
// back with Status "pending" and a nil Error, so the worker leaves it in the
// queue for another worker pass instead of writing a DB error.
type JobResult struct {
	Status      processingjob.Status
	Warnings    []string
	Error       error
	ErrorDetail map[string]interface{}
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	DBReachable      bool           `json:"db_reachable"`
	DBError          string         `json:"db_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	ActiveJobs       int            `json:"active_jobs"`
	MaxConcurrent    int            `json:"max_concurrent"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"` // "idle" or "working"
	CurrentJobID      string    `json:"current_job_id,omitempty"`
	JobsProcessed     int       `json:"jobs_processed"`
	LastActivity      time.Time `json:"last_activity"`
}
