// Package events provides real-time event delivery via WebSocket and
// PostgreSQL NOTIFY/LISTEN for cross-pod distribution.
//
// ════════════════════════════════════════════════════════════════
// Class Session Event Lifecycle
// ════════════════════════════════════════════════════════════════
//
// A class session moves through the pipeline stages (ASR, diarization,
// post-processing, NLP, research, export) one at a time. Two event
// types cover the whole lifecycle:
//
//	stage.status    — a ProcessingJob's current stage started, made
//	                  progress, completed, failed, or was cancelled.
//	session.status  — the owning ClassSession's pipeline_state changed.
//
// Clients subscribe to a session's channel to watch a single recording
// move through the pipeline, or to the global channel for a dashboard
// view across all in-flight sessions.
// ════════════════════════════════════════════════════════════════
package events

// Persistent event types (stored in DB + NOTIFY).
const (
	// Session lifecycle — pipeline_state transitions on ClassSession.
	EventTypeSessionStatus = "session.status"

	// Stage lifecycle — single event type for all stage status transitions.
	EventTypeStageStatus = "stage.status"
)

// Stage lifecycle status values (used in StageStatusPayload.Status).
const (
	StageStatusStarted   = "started"
	StageStatusProgress  = "progress"
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
	StageStatusCancelled = "cancelled"
)

// Transient event types (NOTIFY only, no DB persistence).
const (
	// Fine-grained progress within a single stage (e.g. chunk N of M
	// researched) — too frequent to persist, clients render it live.
	EventTypeStageProgress = "stage.progress"
)

// GlobalSessionsChannel is the channel for session-level status events.
// A dashboard listing in-flight recordings subscribes to this.
const GlobalSessionsChannel = "class_sessions"

// SessionChannel returns the channel name for a specific class session's events.
// Format: "class_session:{class_session_id}"
func SessionChannel(classSessionID string) string {
	return "class_session:" + classSessionID
}

// ClientMessage is the JSON structure for client → server WebSocket messages.
type ClientMessage struct {
	Action      string `json:"action"`                  // "subscribe", "unsubscribe", "catchup", "ping"
	Channel     string `json:"channel,omitempty"`       // Channel name (e.g., "class_session:abc-123")
	LastEventID *int   `json:"last_event_id,omitempty"` // For catchup
}
