// Package queue provides processing-job queue management and worker infrastructure.
package queue

import (
	"context"
	"log/slog"

	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/ent/processingjob"
)

// StubExecutor is a placeholder JobExecutor used before the real pipeline
// orchestrator is wired in. It immediately returns "done" without running
// any stage.
type StubExecutor struct{}

// NewStubExecutor creates a new stub executor.
func NewStubExecutor() *StubExecutor {
	return &StubExecutor{}
}

// Execute returns a done result immediately.
func (e *StubExecutor) Execute(ctx context.Context, job *ent.ProcessingJob) *JobResult {
	jobID := ""
	classSessionID := ""
	if job != nil {
		jobID = job.ID
		classSessionID = job.ClassSessionID
	}
	slog.Info("Stub executor: job processing (no-op)",
		"job_id", jobID,
		"class_session_id", classSessionID,
	)

	if ctx.Err() != nil {
		return &JobResult{
			Status: processingjob.StatusCancelled,
			Error:  ctx.Err(),
		}
	}

	return &JobResult{
		Status:   processingjob.StatusDone,
		Warnings: []string{"stub executor: no pipeline stages were run"},
	}
}
