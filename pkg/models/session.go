package models

import (
	"time"

	"github.com/axonote/pipeline/ent"
)

// CreateSessionRequest contains fields for registering a new class session
// and kicking off its first ProcessingJob.
type CreateSessionRequest struct {
	ClassSessionID string    `json:"class_session_id"`
	ClassDate      time.Time `json:"class_date"`
	Subject        string    `json:"subject"`
	Topic          string    `json:"topic,omitempty"`
	LecturerName   string    `json:"lecturer_name"`
	LecturerRef    string    `json:"lecturer_ref,omitempty"`
}

// SessionFilters contains filtering options for listing class sessions.
type SessionFilters struct {
	PipelineState  string     `json:"pipeline_state,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	LecturerName   string     `json:"lecturer_name,omitempty"`
	CreatedAfter   *time.Time `json:"created_after,omitempty"`
	CreatedBefore  *time.Time `json:"created_before,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
	IncludeDeleted bool       `json:"include_deleted,omitempty"`
}

// SessionListResponse contains a paginated class session list.
type SessionListResponse struct {
	Sessions   []*ent.ClassSession `json:"sessions"`
	TotalCount int                 `json:"total_count"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}
