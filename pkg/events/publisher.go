package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// EventPublisher publishes events for WebSocket delivery.
// Persistent events are stored in the stage_events table then broadcast via
// NOTIFY. Transient events (fine-grained stage progress) are broadcast via
// NOTIFY only.
//
// Each public method accepts a specific typed payload struct — see payloads.go.
// Internally, payloads are marshaled to JSON and routed to the appropriate
// channel (derived from the class session id) via persistAndNotify or notifyOnly.
type EventPublisher struct {
	db *sql.DB
}

// NewEventPublisher creates a new EventPublisher.
// The db parameter should be the *sql.DB from database.Client.DB().
func NewEventPublisher(db *sql.DB) *EventPublisher {
	return &EventPublisher{db: db}
}

// --- Typed public methods ---

// PublishStageStatus persists and broadcasts a stage.status event.
// Used for stage lifecycle transitions (started, progress, completed, failed, cancelled).
func (p *EventPublisher) PublishStageStatus(ctx context.Context, classSessionID string, payload StageStatusPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal StageStatusPayload: %w", err)
	}
	return p.persistAndNotify(ctx, classSessionID, payload.Stage, payload.JobID, SessionChannel(classSessionID), payloadJSON)
}

// PublishSessionStatus persists a pipeline_state transition event to the
// session channel and broadcasts a transient copy to the global channel.
// Both publishes are best-effort: if the persistent one fails, the transient
// one is still attempted. Returns the first error encountered (if any).
func (p *EventPublisher) PublishSessionStatus(ctx context.Context, classSessionID string, payload SessionStatusPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SessionStatusPayload: %w", err)
	}

	var firstErr error
	if err := p.persistAndNotify(ctx, classSessionID, "", "", SessionChannel(classSessionID), payloadJSON); err != nil {
		slog.Warn("Failed to publish session status to session channel",
			"class_session_id", classSessionID, "pipeline_state", payload.PipelineState, "error", err)
		firstErr = err
	}

	if err := p.notifyOnly(ctx, GlobalSessionsChannel, payloadJSON); err != nil {
		slog.Warn("Failed to publish session status to global channel",
			"class_session_id", classSessionID, "pipeline_state", payload.PipelineState, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// PublishStageProgress broadcasts a stage.progress transient event (no DB
// persistence). Published to the session channel for a live progress bar.
func (p *EventPublisher) PublishStageProgress(ctx context.Context, classSessionID string, payload StageProgressPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal StageProgressPayload: %w", err)
	}
	return p.notifyOnly(ctx, SessionChannel(classSessionID), payloadJSON)
}

// --- Internal core methods ---

// persistAndNotify persists a pre-marshaled event to the database and broadcasts
// via NOTIFY in a single transaction (pg_notify is transactional — held until COMMIT).
// stage and jobID may be empty for session-level events.
func (p *EventPublisher) persistAndNotify(ctx context.Context, classSessionID, stage, jobID, channel string, payloadJSON []byte) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var eventID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO stage_events (class_session_id, job_id, stage, event_type, payload, created_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6) RETURNING id`,
		classSessionID, jobID, stage, eventTypeOf(payloadJSON), payloadJSON, time.Now(),
	).Scan(&eventID)
	if err != nil {
		return fmt.Errorf("failed to persist event: %w", err)
	}

	notifyPayload, err := injectDBEventIDAndTruncate(payloadJSON, eventID)
	if err != nil {
		return err
	}

	// 2. pg_notify within same transaction — held until COMMIT
	_, err = tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload)
	if err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}

	// 3. Commit — INSERT is persisted and NOTIFY fires atomically
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event transaction: %w", err)
	}

	return nil
}

// notifyOnly broadcasts a pre-marshaled event via NOTIFY without persisting to DB.
func (p *EventPublisher) notifyOnly(ctx context.Context, channel string, payloadJSON []byte) error {
	notifyPayload, err := truncateIfNeeded(string(payloadJSON))
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload)
	if err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}
	return nil
}

// --- Internal helpers ---

// eventTypeOf extracts the "type" discriminator from an already-marshaled payload.
func eventTypeOf(payloadJSON []byte) string {
	var m struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payloadJSON, &m); err != nil {
		return "unknown"
	}
	return m.Type
}

// injectDBEventIDAndTruncate adds db_event_id to the JSON payload for NOTIFY
// delivery and applies truncation if the result exceeds PostgreSQL's limit.
func injectDBEventIDAndTruncate(payloadJSON []byte, dbEventID int64) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(payloadJSON, &m); err != nil {
		return "", fmt.Errorf("failed to unmarshal payload for db_event_id injection: %w", err)
	}
	m["db_event_id"] = dbEventID

	enrichedBytes, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal enriched NOTIFY payload: %w", err)
	}

	return truncateIfNeeded(string(enrichedBytes))
}

// truncateIfNeeded returns the payload string as-is if it fits within
// PostgreSQL's 8000-byte NOTIFY limit, otherwise returns a minimal
// truncation envelope with only routing fields.
func truncateIfNeeded(payloadStr string) (string, error) {
	if len(payloadStr) <= 7900 {
		return payloadStr, nil
	}
	return buildTruncatedPayload([]byte(payloadStr))
}

// buildTruncatedPayload creates a minimal truncation envelope from the full
// JSON payload bytes, extracting only the routing fields the client needs
// to fetch the complete event from the database.
func buildTruncatedPayload(payloadBytes []byte) (string, error) {
	var routing struct {
		Type           string `json:"type"`
		ClassSessionID string `json:"class_session_id"`
		DBEventID      *int64 `json:"db_event_id,omitempty"`
	}
	if err := json.Unmarshal(payloadBytes, &routing); err != nil {
		return "", fmt.Errorf("failed to extract routing fields for truncation: %w", err)
	}

	truncated := map[string]any{
		"type":             routing.Type,
		"class_session_id": routing.ClassSessionID,
		"truncated":        true,
	}
	if routing.DBEventID != nil {
		truncated["db_event_id"] = *routing.DBEventID
	}

	truncBytes, err := json.Marshal(truncated)
	if err != nil {
		return "", fmt.Errorf("failed to marshal truncated payload: %w", err)
	}
	return string(truncBytes), nil
}
