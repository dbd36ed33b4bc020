package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/ent/processingjob"
	"github.com/axonote/pipeline/ent/stageevent"
	"github.com/axonote/pipeline/pkg/config"
	"github.com/axonote/pipeline/pkg/events"
	"github.com/axonote/pipeline/pkg/slack"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes jobs.
type Worker struct {
	id             string
	podID          string
	client         *ent.Client
	config         *config.QueueConfig
	jobExecutor    JobExecutor
	eventPublisher EventPublisher
	slackService   *slack.Service
	pool           JobRegistry
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup

	// Health tracking
	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// JobRegistry is the subset of WorkerPool used by Worker for job registration.
type JobRegistry interface {
	RegisterJob(jobID string, cancel context.CancelFunc)
	UnregisterJob(jobID string)
}

// NewWorker creates a new queue worker.
// eventPublisher may be nil (streaming disabled).
// slackService may be nil (Slack notifications disabled).
func NewWorker(id, podID string, client *ent.Client, cfg *config.QueueConfig, executor JobExecutor, pool JobRegistry, eventPublisher EventPublisher, slackService *slack.Service) *Worker {
	return &Worker{
		id:             id,
		podID:          podID,
		client:         client,
		config:         cfg,
		jobExecutor:    executor,
		eventPublisher: eventPublisher,
		slackService:   slackService,
		pool:           pool,
		stopCh:         make(chan struct{}),
		status:         WorkerStatusIdle,
		lastActivity:   time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing job", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a job, and processes it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	// 1. Check global capacity (best-effort; racy with concurrent workers but
	//    bounded by WorkerCount and mitigated by poll jitter).
	activeCount, err := w.client.ProcessingJob.Query().
		Where(processingjob.StatusEQ(processingjob.StatusRunning)).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("checking active jobs: %w", err)
	}
	if activeCount >= w.config.MaxConcurrentJobs {
		return ErrAtCapacity
	}

	// 2. Claim next job
	job, firstClaim, err := w.claimNextJob(ctx)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "class_session_id", job.ClassSessionID, "worker_id", w.id)
	log.Info("Job claimed", "stage", job.CurrentStage)

	w.publishStageStatus(ctx, job, events.StageStatusStarted, "")

	if firstClaim {
		w.notifySlackStart(ctx, job)
	}

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	// 3. Create job context with timeout
	jobCtx, cancelJob := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancelJob()

	// 4. Register cancel function for API-triggered cancellation
	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	// 5. Start heartbeat
	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx, job.ID)

	// 6. Execute one stage transition
	result := w.jobExecutor.Execute(jobCtx, job)

	// 6a. Nil-guard: synthesize a safe result if executor returned nil
	if result == nil {
		switch {
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			result = &JobResult{Status: processingjob.StatusError, Error: fmt.Errorf("job timed out after %v", w.config.JobTimeout)}
		case errors.Is(jobCtx.Err(), context.Canceled):
			result = &JobResult{Status: processingjob.StatusCancelled, Error: context.Canceled}
		default:
			result = &JobResult{Status: processingjob.StatusError, Error: fmt.Errorf("executor returned nil result")}
		}
	}

	// 7. Handle timeout
	if result.Status == "" && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		result = &JobResult{Status: processingjob.StatusError, Error: fmt.Errorf("job timed out after %v", w.config.JobTimeout)}
	}

	// 8. Handle cancellation
	if result.Status == "" && errors.Is(jobCtx.Err(), context.Canceled) {
		result = &JobResult{Status: processingjob.StatusCancelled, Error: context.Canceled}
	}

	// 9. Stop heartbeat
	cancelHeartbeat()

	// 10. Persist the result (use background context — job ctx may be cancelled)
	if err := w.updateJobStatus(context.Background(), job.ID, result); err != nil {
		log.Error("Failed to update job status", "error", err)
		return err
	}

	terminal := isTerminal(result.Status)

	// 10a. Publish stage status event for this claim
	w.publishStageStatus(context.Background(), job, stageStatusFor(result, terminal), errMessage(result))

	// 10b. Slack + cleanup only on terminal outcomes
	if terminal {
		w.notifySlackTerminal(context.Background(), job, result)
		w.scheduleEventCleanup(job.ClassSessionID)
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("Job processing pass complete", "status", result.Status, "terminal", terminal)
	return nil
}

// isTerminal reports whether a job status ends the job's lifecycle.
func isTerminal(status processingjob.Status) bool {
	switch status {
	case processingjob.StatusDone, processingjob.StatusError, processingjob.StatusCancelled:
		return true
	default:
		return false
	}
}

// stageStatusFor maps a JobResult to a stage.status status string.
func stageStatusFor(result *JobResult, terminal bool) string {
	if !terminal {
		return events.StageStatusCompleted
	}
	switch result.Status {
	case processingjob.StatusError:
		return events.StageStatusFailed
	case processingjob.StatusCancelled:
		return events.StageStatusCancelled
	default:
		return events.StageStatusCompleted
	}
}

func errMessage(result *JobResult) string {
	if result.Error != nil {
		return result.Error.Error()
	}
	return ""
}

// claimNextJob atomically claims the next pending job using FOR UPDATE SKIP LOCKED.
// The returned bool reports whether this is the job's first claim (started_at was
// unset), used to decide whether to send a Slack "processing started" notification.
func (w *Worker) claimNextJob(ctx context.Context) (*ent.ProcessingJob, bool, error) {
	tx, err := w.client.Tx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := tx.ProcessingJob.Query().
		Where(processingjob.StatusEQ(processingjob.StatusPending)).
		Order(ent.Desc(processingjob.FieldPriority), ent.Asc(processingjob.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, false, ErrNoJobsAvailable
		}
		return nil, false, fmt.Errorf("failed to query pending job: %w", err)
	}

	firstClaim := job.StartedAt == nil
	now := time.Now()

	update := job.Update().
		SetStatus(processingjob.StatusRunning).
		SetOwnerWorkerID(w.podID).
		SetLastHeartbeatAt(now)
	if firstClaim {
		update = update.SetStartedAt(now)
	}

	job, err = update.Save(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit claim: %w", err)
	}

	return job, firstClaim, nil
}

// runHeartbeat periodically updates last_heartbeat_at for orphan detection.
func (w *Worker) runHeartbeat(ctx context.Context, jobID string) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.client.ProcessingJob.UpdateOneID(jobID).
				SetLastHeartbeatAt(time.Now()).
				Exec(ctx); err != nil {
				slog.Warn("Heartbeat update failed", "job_id", jobID, "error", err)
			}
		}
	}
}

// updateJobStatus writes the result of one stage transition. A non-terminal
// "pending" status means the executor re-enqueued the job for its next
// stage; the worker releases ownership without setting finished_at.
func (w *Worker) updateJobStatus(ctx context.Context, jobID string, result *JobResult) error {
	update := w.client.ProcessingJob.UpdateOneID(jobID).
		SetStatus(result.Status).
		ClearOwnerWorkerID()

	if isTerminal(result.Status) {
		update = update.SetFinishedAt(time.Now())
	}
	if result.Error != nil {
		update = update.SetLastError(result.Error.Error())
	} else {
		update = update.ClearLastError()
	}
	if result.ErrorDetail != nil {
		update = update.SetErrorDetails(result.ErrorDetail)
	}
	if result.Warnings != nil {
		update = update.SetWarnings(result.Warnings)
	}

	return update.Exec(ctx)
}

// publishStageStatus publishes a stage.status event for the job's current stage.
// Non-blocking: errors are logged.
func (w *Worker) publishStageStatus(ctx context.Context, job *ent.ProcessingJob, status, message string) {
	if w.eventPublisher == nil {
		return
	}

	var stage string
	if job.CurrentStage != nil {
		stage = string(*job.CurrentStage)
	}

	if err := w.eventPublisher.PublishStageStatus(ctx, job.ClassSessionID, events.StageStatusPayload{
		Type:           events.EventTypeStageStatus,
		ClassSessionID: job.ClassSessionID,
		JobID:          job.ID,
		Stage:          stage,
		Status:         status,
		ProgressPct:    job.ProgressPct,
		Message:        message,
		Timestamp:      time.Now().Format(time.RFC3339Nano),
	}); err != nil {
		slog.Warn("Failed to publish stage status",
			"job_id", job.ID, "status", status, "error", err)
	}
}

// scheduleEventCleanup schedules deletion of transient stage events after a
// 60-second grace period, allowing WebSocket clients to receive final events.
func (w *Worker) scheduleEventCleanup(classSessionID string) {
	time.AfterFunc(60*time.Second, func() {
		if _, err := w.client.StageEvent.Delete().
			Where(stageevent.ClassSessionIDEQ(classSessionID)).
			Exec(context.Background()); err != nil {
			slog.Warn("Failed to cleanup stage events after grace period",
				"class_session_id", classSessionID, "error", err)
		}
	})
}

// notifySlackStart sends a Slack start notification for a newly claimed job.
func (w *Worker) notifySlackStart(ctx context.Context, job *ent.ProcessingJob) {
	if w.slackService == nil {
		return
	}

	classSession, err := w.client.ClassSession.Get(ctx, job.ClassSessionID)
	if err != nil {
		slog.Warn("Failed to load class session for Slack start notification",
			"class_session_id", job.ClassSessionID, "error", err)
		return
	}

	w.slackService.NotifyJobStarted(ctx, slack.JobStartedInput{
		ClassSessionID: job.ClassSessionID,
		Subject:        classSession.Subject,
	})
}

// notifySlackTerminal sends a Slack terminal status notification.
func (w *Worker) notifySlackTerminal(ctx context.Context, job *ent.ProcessingJob, result *JobResult) {
	if w.slackService == nil {
		return
	}

	classSession, err := w.client.ClassSession.Get(ctx, job.ClassSessionID)
	if err != nil {
		slog.Warn("Failed to load class session for Slack terminal notification",
			"class_session_id", job.ClassSessionID, "error", err)
		return
	}

	var stage string
	if job.CurrentStage != nil {
		stage = string(*job.CurrentStage)
	}

	w.slackService.NotifyJobCompleted(ctx, slack.JobCompletedInput{
		ClassSessionID: job.ClassSessionID,
		Subject:        classSession.Subject,
		Status:         string(result.Status),
		FailedStage:    stage,
		ErrorMessage:   errMessage(result),
	})
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	// Range: [base - jitter, base + jitter]
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
