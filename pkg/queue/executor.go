package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/ent/classsession"
	"github.com/axonote/pipeline/ent/processingjob"
	"github.com/axonote/pipeline/pkg/events"
	"github.com/axonote/pipeline/pkg/recognizer"
)

// stageOrder is the full pipeline path a FULL job walks end to end.
var stageOrder = []processingjob.CurrentStage{
	processingjob.CurrentStageAsr,
	processingjob.CurrentStageDiarization,
	processingjob.CurrentStagePostprocess,
	processingjob.CurrentStageNlp,
	processingjob.CurrentStageResearch,
	processingjob.CurrentStageExport,
}

// Exporter produces the downstream artifacts (MicroMemo, export bundle, TTS)
// for a completed class session. Kept as a narrow interface so this package
// does not need to import the artifact generators directly.
type Exporter interface {
	Export(ctx context.Context, classSessionID string) (warnings []string, err error)
}

// StageExecutor implements JobExecutor: it runs exactly one pipeline stage
// per Execute call, persists the stage's typed result row, advances the
// owning ClassSession's pipeline_state, and either re-enqueues the job for
// its next stage or returns a terminal JobResult.
type StageExecutor struct {
	db       *ent.Client
	registry *recognizer.Registry
	presets  *recognizer.PresetRegistry
	events   EventPublisher
	exporter Exporter
}

// NewStageExecutor builds a StageExecutor. exporter may be nil (the export
// stage then completes with a warning instead of producing artifacts).
func NewStageExecutor(db *ent.Client, registry *recognizer.Registry, presets *recognizer.PresetRegistry, eventPublisher EventPublisher, exporter Exporter) *StageExecutor {
	return &StageExecutor{
		db:       db,
		registry: registry,
		presets:  presets,
		events:   eventPublisher,
		exporter: exporter,
	}
}

// Execute runs job's current stage to completion (or failure) and reports
// what should happen next.
func (e *StageExecutor) Execute(ctx context.Context, job *ent.ProcessingJob) *JobResult {
	stage, err := startingStage(job)
	if err != nil {
		return &JobResult{Status: processingjob.StatusError, Error: err}
	}

	logger := slog.With("job_id", job.ID, "class_session_id", job.ClassSessionID, "stage", stage)
	logger.Info("stage executor: starting stage")

	progress := func(pct int, message string) {
		if e.events == nil {
			return
		}
		if err := e.events.PublishStageStatus(ctx, job.ClassSessionID, events.StageStatusPayload{
			Type:           events.EventTypeStageStatus,
			ClassSessionID: job.ClassSessionID,
			JobID:          job.ID,
			Stage:          string(stage),
			Status:         events.StageStatusProgress,
			ProgressPct:    pct,
			Message:        message,
			Timestamp:      time.Now().Format(time.RFC3339Nano),
		}); err != nil {
			logger.Warn("failed to publish stage progress", "error", err)
		}
	}

	var warnings []string
	var runErr error

	switch stage {
	case processingjob.CurrentStageAsr:
		warnings, runErr = e.runASR(ctx, job, progress)
	case processingjob.CurrentStageDiarization:
		warnings, runErr = e.runDiarization(ctx, job, progress)
	case processingjob.CurrentStagePostprocess:
		warnings, runErr = e.runPostProcess(ctx, job, progress)
	case processingjob.CurrentStageNlp:
		warnings, runErr = e.runNLP(ctx, job, progress)
	case processingjob.CurrentStageResearch:
		warnings, runErr = e.runResearch(ctx, job, progress)
	case processingjob.CurrentStageExport:
		warnings, runErr = e.runExport(ctx, job, progress)
	default:
		runErr = fmt.Errorf("stage executor: unhandled stage %q", stage)
	}

	if ctx.Err() != nil {
		logger.Info("stage executor: cancelled, result row not persisted")
		return &JobResult{Status: processingjob.StatusCancelled, Error: ctx.Err()}
	}

	if runErr != nil {
		logger.Error("stage executor: stage failed", "error", runErr)
		return &JobResult{
			Status:      processingjob.StatusError,
			Warnings:    warnings,
			Error:       runErr,
			ErrorDetail: map[string]interface{}{"stage": string(stage)},
		}
	}

	if onlyStage(job.RequestedKind) {
		return &JobResult{Status: processingjob.StatusDone, Warnings: warnings}
	}

	next, done := nextStage(stage)
	if done {
		return &JobResult{Status: processingjob.StatusDone, Warnings: warnings}
	}

	if err := e.db.ProcessingJob.UpdateOneID(job.ID).
		SetCurrentStage(next).
		SetProgressPct(0).
		Exec(ctx); err != nil {
		return &JobResult{Status: processingjob.StatusError, Error: fmt.Errorf("advance stage: %w", err)}
	}

	return &JobResult{Status: processingjob.StatusPending, Warnings: warnings}
}

// startingStage resolves the stage to run: job.CurrentStage when set,
// otherwise the first stage implied by RequestedKind.
func startingStage(job *ent.ProcessingJob) (processingjob.CurrentStage, error) {
	if job.CurrentStage != nil {
		return *job.CurrentStage, nil
	}

	switch job.RequestedKind {
	case processingjob.RequestedKindFull, processingjob.RequestedKindAsrOnly, processingjob.RequestedKindReprocessAsr:
		return processingjob.CurrentStageAsr, nil
	case processingjob.RequestedKindDiarizationOnly, processingjob.RequestedKindReprocessDiarization:
		return processingjob.CurrentStageDiarization, nil
	case processingjob.RequestedKindReprocessPostprocess:
		return processingjob.CurrentStagePostprocess, nil
	case processingjob.RequestedKindReprocessNlp:
		return processingjob.CurrentStageNlp, nil
	case processingjob.RequestedKindReprocessResearch:
		return processingjob.CurrentStageResearch, nil
	default:
		return "", fmt.Errorf("stage executor: unrecognized requested_kind %q", job.RequestedKind)
	}
}

// onlyStage reports whether kind's contract is "run exactly one stage, then
// stop" rather than "continue down the pipeline".
func onlyStage(kind processingjob.RequestedKind) bool {
	return kind == processingjob.RequestedKindAsrOnly || kind == processingjob.RequestedKindDiarizationOnly
}

// nextStage returns the stage following cur in stageOrder, or done=true when
// cur was the last one.
func nextStage(cur processingjob.CurrentStage) (next processingjob.CurrentStage, done bool) {
	for i, s := range stageOrder {
		if s == cur {
			if i == len(stageOrder)-1 {
				return "", true
			}
			return stageOrder[i+1], false
		}
	}
	return "", true
}

// publishSessionStatus is best-effort: logs on failure, never aborts a stage.
func (e *StageExecutor) publishSessionStatus(ctx context.Context, classSessionID string, state classsession.PipelineState) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishSessionStatus(ctx, classSessionID, events.SessionStatusPayload{
		Type:           events.EventTypeSessionStatus,
		ClassSessionID: classSessionID,
		PipelineState:  string(state),
		Timestamp:      time.Now().Format(time.RFC3339Nano),
	}); err != nil {
		slog.Warn("failed to publish session status", "class_session_id", classSessionID, "error", err)
	}
}
