package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// JobStartedInput contains data for a job-started notification.
type JobStartedInput struct {
	ClassSessionID string
	Subject        string
}

// JobCompletedInput contains data for a terminal job notification.
type JobCompletedInput struct {
	ClassSessionID string
	Subject        string
	Status         string // done, error, cancelled
	FailedStage    string
	ErrorMessage   string
}

// Service handles Slack notification delivery.
// Nil-safe: all methods are no-ops when the service itself is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty, so callers can pass the result
// straight through without a separate enabled check.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyJobStarted sends a "processing started" notification. Fail-open:
// errors are logged, never returned.
func (s *Service) NotifyJobStarted(ctx context.Context, input JobStartedInput) {
	if s == nil {
		return
	}

	blocks := BuildJobStartedMessage(input.ClassSessionID, input.Subject, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, 5*time.Second); err != nil {
		s.logger.Error("Failed to send Slack start notification",
			"class_session_id", input.ClassSessionID, "error", err)
	}
}

// NotifyJobCompleted sends a terminal status notification. Fail-open: errors
// are logged, never returned.
func (s *Service) NotifyJobCompleted(ctx context.Context, input JobCompletedInput) {
	if s == nil {
		return
	}

	blocks := BuildJobCompletedMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, 10*time.Second); err != nil {
		s.logger.Error("Failed to send Slack notification",
			"class_session_id", input.ClassSessionID, "status", input.Status, "error", err)
	}
}
