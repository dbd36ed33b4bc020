package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/ent/processingjob"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for orphaned jobs.
// All pods run this independently — operations are idempotent.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("Orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds running jobs with stale heartbeats and marks
// them as errored (terminal state) so they stop holding a worker slot.
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.OrphanThreshold)

	orphans, err := p.client.ProcessingJob.Query().
		Where(
			processingjob.StatusEQ(processingjob.StatusRunning),
			processingjob.LastHeartbeatAtNotNil(),
			processingjob.LastHeartbeatAtLT(threshold),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query orphaned jobs: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("Detected orphaned jobs", "count", len(orphans))

	recovered := 0
	failed := 0
	for _, job := range orphans {
		if err := p.recoverOrphanedJob(ctx, job); err != nil {
			slog.Error("Failed to recover orphaned job",
				"job_id", job.ID,
				"error", err)
			failed++
			continue
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	if failed > 0 {
		slog.Warn("Orphan recovery completed with failures",
			"total_orphans", len(orphans),
			"recovered", recovered,
			"failed", failed)
	}

	return nil
}

// recoverOrphanedJob marks a single orphaned job as errored.
func (p *WorkerPool) recoverOrphanedJob(ctx context.Context, job *ent.ProcessingJob) error {
	log := slog.With("job_id", job.ID, "old_owner_worker_id", job.OwnerWorkerID)

	lastHeartbeat := "unknown"
	if job.LastHeartbeatAt != nil {
		lastHeartbeat = job.LastHeartbeatAt.Format(time.RFC3339)
	}

	ownerWorkerID := "unknown"
	if job.OwnerWorkerID != nil {
		ownerWorkerID = *job.OwnerWorkerID
	}

	errorMsg := fmt.Sprintf("Orphaned: no heartbeat from worker %s since %s", ownerWorkerID, lastHeartbeat)
	if err := markJobOrphaned(ctx, p.client, job.ID, errorMsg); err != nil {
		return err
	}

	log.Warn("Orphaned job marked as errored", "last_heartbeat", lastHeartbeat)
	return nil
}

// CleanupStartupOrphans performs a one-time cleanup of jobs owned by this pod
// that were running when the pod previously crashed.
// Called once during startup, before the worker pool begins processing.
func CleanupStartupOrphans(ctx context.Context, client *ent.Client, podID string) error {
	orphans, err := client.ProcessingJob.Query().
		Where(
			processingjob.StatusEQ(processingjob.StatusRunning),
			processingjob.OwnerWorkerIDEQ(podID),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query startup orphans: %w", err)
	}

	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("Found startup orphans from previous run",
		"pod_id", podID,
		"count", len(orphans))

	for _, job := range orphans {
		errorMsg := fmt.Sprintf("Orphaned: pod %s restarted while job was running", podID)
		if err := markJobOrphaned(ctx, client, job.ID, errorMsg); err != nil {
			slog.Error("Failed to mark startup orphan",
				"job_id", job.ID,
				"error", err)
			continue
		}

		slog.Info("Startup orphan recovered", "job_id", job.ID)
	}

	return nil
}

// markJobOrphaned is a shared helper that marks a job as errored and releases
// its worker claim. Uses a transaction for atomicity.
func markJobOrphaned(ctx context.Context, client *ent.Client, jobID, errorMsg string) error {
	tx, err := client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	err = tx.ProcessingJob.UpdateOneID(jobID).
		SetStatus(processingjob.StatusError).
		SetFinishedAt(now).
		SetLastError(errorMsg).
		ClearOwnerWorkerID().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark job as errored: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
