package queue

import (
	"context"
	"testing"
	"time"

	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/pkg/config"
	"github.com/axonote/pipeline/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		WorkerCount:             5,
		MaxConcurrentJobs:       5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		JobTimeout:              15 * time.Minute,
		GracefulShutdownTimeout: 15 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
		HeartbeatInterval:       30 * time.Second,
	}
}

func TestWorkerPollInterval(t *testing.T) {
	cfg := testQueueConfig()
	w := NewWorker("test-worker", "test-pod", nil, cfg, nil, nil, nil, nil)

	// Poll interval should be within [base - jitter, base + jitter]
	for i := 0; i < 100; i++ {
		d := w.pollInterval()
		assert.GreaterOrEqual(t, d, 500*time.Millisecond, "poll interval below minimum")
		assert.LessOrEqual(t, d, 1500*time.Millisecond, "poll interval above maximum")
	}
}

func TestWorkerPollIntervalNoJitter(t *testing.T) {
	cfg := testQueueConfig()
	cfg.PollIntervalJitter = 0
	w := NewWorker("test-worker", "test-pod", nil, cfg, nil, nil, nil, nil)

	for i := 0; i < 10; i++ {
		d := w.pollInterval()
		assert.Equal(t, 1*time.Second, d, "poll interval should equal base when jitter is 0")
	}
}

func TestWorkerHealth(t *testing.T) {
	cfg := testQueueConfig()
	w := NewWorker("worker-1", "pod-1", nil, cfg, nil, nil, nil, nil)

	h := w.Health()
	assert.Equal(t, "worker-1", h.ID)
	assert.Equal(t, string(WorkerStatusIdle), h.Status)
	assert.Equal(t, "", h.CurrentJobID)
	assert.Equal(t, 0, h.JobsProcessed)

	// Simulate working state
	w.setStatus(WorkerStatusWorking, "job-abc")
	h = w.Health()
	assert.Equal(t, string(WorkerStatusWorking), h.Status)
	assert.Equal(t, "job-abc", h.CurrentJobID)

	// Back to idle
	w.setStatus(WorkerStatusIdle, "")
	h = w.Health()
	assert.Equal(t, string(WorkerStatusIdle), h.Status)
	assert.Equal(t, "", h.CurrentJobID)
}

func TestWorker_PublishStageStatusNilPublisher(t *testing.T) {
	cfg := testQueueConfig()
	w := NewWorker("worker-1", "pod-1", nil, cfg, nil, nil, nil, nil)

	job := &ent.ProcessingJob{ID: "job-123", ClassSessionID: "sess-1"}

	// Should not panic with nil eventPublisher
	assert.NotPanics(t, func() {
		w.publishStageStatus(t.Context(), job, events.StageStatusStarted, "")
	})
	assert.NotPanics(t, func() {
		w.publishStageStatus(t.Context(), job, events.StageStatusCompleted, "")
	})
}

func TestWorker_PublishStageStatusWithPublisher(t *testing.T) {
	cfg := testQueueConfig()
	pub := &mockEventPublisher{}
	w := NewWorker("worker-1", "pod-1", nil, cfg, nil, nil, pub, nil)

	job := &ent.ProcessingJob{ID: "job-abc", ClassSessionID: "sess-abc"}
	w.publishStageStatus(t.Context(), job, events.StageStatusStarted, "")

	assert.Equal(t, 1, pub.stageStatusCount, "should call PublishStageStatus once")

	require.NotNil(t, pub.lastStageStatus)
	assert.Equal(t, "stage.status", pub.lastStageStatus.Type)
	assert.Equal(t, "sess-abc", pub.lastStageStatus.ClassSessionID)
	assert.Equal(t, "job-abc", pub.lastStageStatus.JobID)
	assert.Equal(t, events.StageStatusStarted, pub.lastStageStatus.Status)
	assert.NotEmpty(t, pub.lastStageStatus.Timestamp)
}

// mockEventPublisher implements the queue package's EventPublisher interface
// for unit tests.
type mockEventPublisher struct {
	sessionStatusCount int
	lastSessionStatus  *events.SessionStatusPayload
	stageStatusCount   int
	lastStageStatus    *events.StageStatusPayload
}

func (m *mockEventPublisher) PublishSessionStatus(_ context.Context, _ string, payload events.SessionStatusPayload) error {
	m.sessionStatusCount++
	m.lastSessionStatus = &payload
	return nil
}

func (m *mockEventPublisher) PublishStageStatus(_ context.Context, _ string, payload events.StageStatusPayload) error {
	m.stageStatusCount++
	m.lastStageStatus = &payload
	return nil
}

func TestWorkerStopIdempotent(t *testing.T) {
	cfg := testQueueConfig()
	w := NewWorker("worker-1", "pod-1", nil, cfg, nil, nil, nil, nil)

	// First stop should succeed
	assert.NotPanics(t, func() { w.Stop() })

	// Second stop should also succeed (no panic)
	assert.NotPanics(t, func() { w.Stop() })
}

func TestWorkerPollIntervalWithNegativeJitter(t *testing.T) {
	cfg := testQueueConfig()
	cfg.PollInterval = 1 * time.Second
	cfg.PollIntervalJitter = -100 * time.Millisecond
	w := NewWorker("test-worker", "test-pod", nil, cfg, nil, nil, nil, nil)

	// Negative jitter should be treated as zero
	for i := 0; i < 10; i++ {
		d := w.pollInterval()
		assert.Equal(t, 1*time.Second, d)
	}
}
