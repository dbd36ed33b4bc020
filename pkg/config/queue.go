package config

import "time"

// QueueConfig contains queue and worker pool configuration.
// These values control how processing jobs are polled, claimed, and processed.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per replica/pod.
	// Each worker independently polls and processes jobs.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentJobs is the global limit of concurrent jobs being
	// processed across ALL replicas/pods. Enforced by database COUNT(*) check.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// PollInterval is the base interval for checking pending jobs.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval ± PollIntervalJitter.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// JobTimeout is the maximum time a single pipeline stage may run before
	// the job's context is cancelled.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// GracefulShutdownTimeout is the max time to wait for active jobs
	// to complete during shutdown. Should match JobTimeout.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often to scan for orphaned jobs.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long a job can go without a heartbeat
	// before it is considered orphaned.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`

	// HeartbeatInterval is how often a worker updates last_heartbeat_at
	// for the job it is currently processing.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrentJobs:       5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		JobTimeout:              30 * time.Minute,
		GracefulShutdownTimeout: 30 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
		HeartbeatInterval:       15 * time.Second,
	}
}
