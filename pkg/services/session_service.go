package services

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/ent/classsession"
	"github.com/axonote/pipeline/ent/processingjob"
	"github.com/axonote/pipeline/pkg/models"
	"github.com/google/uuid"
)

// SessionService manages class session lifecycle.
type SessionService struct {
	client *ent.Client
}

// NewSessionService creates a new SessionService.
func NewSessionService(client *ent.Client) *SessionService {
	return &SessionService{client: client}
}

// CreateSession registers a new class session and enqueues its first
// ProcessingJob (requested_kind "full", status pending).
func (s *SessionService) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*ent.ClassSession, error) {
	if req.ClassSessionID == "" {
		return nil, NewValidationError("class_session_id", "required")
	}
	if req.Subject == "" {
		return nil, NewValidationError("subject", "required")
	}
	if req.LecturerName == "" {
		return nil, NewValidationError("lecturer_name", "required")
	}
	if req.ClassDate.IsZero() {
		return nil, NewValidationError("class_date", "required")
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.client.Tx(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	sessionBuilder := tx.ClassSession.Create().
		SetID(req.ClassSessionID).
		SetClassDate(req.ClassDate).
		SetSubject(req.Subject).
		SetLecturerName(req.LecturerName)

	if req.Topic != "" {
		sessionBuilder.SetTopic(req.Topic)
	}
	if req.LecturerRef != "" {
		sessionBuilder.SetLecturerRef(req.LecturerRef)
	}

	session, err := sessionBuilder.Save(writeCtx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create class session: %w", err)
	}

	if _, err := tx.ProcessingJob.Create().
		SetID(uuid.New().String()).
		SetClassSessionID(session.ID).
		SetRequestedKind(processingjob.RequestedKindFull).
		SetStatus(processingjob.StatusPending).
		Save(writeCtx); err != nil {
		return nil, fmt.Errorf("failed to enqueue initial processing job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

// GetSession retrieves a class session by ID with optional edge loading.
func (s *SessionService) GetSession(ctx context.Context, classSessionID string, withEdges bool) (*ent.ClassSession, error) {
	query := s.client.ClassSession.Query().Where(classsession.IDEQ(classSessionID))

	if withEdges {
		query = query.
			WithProcessingJobs(func(q *ent.ProcessingJobQuery) {
				q.Order(ent.Desc(processingjob.FieldCreatedAt))
			}).
			WithUploadSessions().
			WithTranscriptionResults().
			WithDiarizationResults().
			WithPostProcessingResults().
			WithLlmAnalysisResults()
	}

	session, err := query.Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get class session: %w", err)
	}

	return session, nil
}

// ListSessions lists class sessions with filtering and pagination.
func (s *SessionService) ListSessions(ctx context.Context, filters models.SessionFilters) (*models.SessionListResponse, error) {
	query := s.client.ClassSession.Query()

	if filters.PipelineState != "" {
		query = query.Where(classsession.PipelineStateEQ(classsession.PipelineState(filters.PipelineState)))
	}
	if filters.Subject != "" {
		query = query.Where(classsession.SubjectEQ(filters.Subject))
	}
	if filters.LecturerName != "" {
		query = query.Where(classsession.LecturerNameEQ(filters.LecturerName))
	}
	if filters.CreatedAfter != nil {
		query = query.Where(classsession.CreatedAtGTE(*filters.CreatedAfter))
	}
	if filters.CreatedBefore != nil {
		query = query.Where(classsession.CreatedAtLT(*filters.CreatedBefore))
	}
	if !filters.IncludeDeleted {
		query = query.Where(classsession.DeletedAtIsNil())
	}

	totalCount, err := query.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count class sessions: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	sessions, err := query.
		Limit(limit).
		Offset(offset).
		Order(ent.Desc(classsession.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list class sessions: %w", err)
	}

	return &models.SessionListResponse{
		Sessions:   sessions,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// UpdateSessionPipelineState moves a class session to a new pipeline_state.
func (s *SessionService) UpdateSessionPipelineState(ctx context.Context, classSessionID string, state classsession.PipelineState) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.client.ClassSession.UpdateOneID(classSessionID).
		SetPipelineState(state).
		Exec(writeCtx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update pipeline state: %w", err)
	}

	return nil
}

// SoftDeleteOldSessions soft deletes terminal (done/error) class sessions
// whose last update is older than the retention period.
func (s *SessionService) SoftDeleteOldSessions(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention_days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	deleteCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.client.ClassSession.Update().
		Where(
			classsession.UpdatedAtLT(cutoff),
			classsession.DeletedAtIsNil(),
			classsession.PipelineStateIn(classsession.PipelineStateDone, classsession.PipelineStateError),
		).
		SetDeletedAt(time.Now()).
		Save(deleteCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete class sessions: %w", err)
	}

	return count, nil
}

// RestoreSession restores a soft-deleted class session.
func (s *SessionService) RestoreSession(ctx context.Context, classSessionID string) error {
	restoreCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.client.ClassSession.UpdateOneID(classSessionID).
		ClearDeletedAt().
		Exec(restoreCtx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to restore class session: %w", err)
	}

	return nil
}

// CancelActiveJob marks the class session's most recent, non-terminal
// processing job as cancelled. The DB update is the source of truth — a
// worker actively running the job notices via its own heartbeat/status
// check (or, same-pod, via the worker pool's in-memory CancelJob). Returns
// ErrNotCancellable if the most recent job has already reached a terminal
// state.
func (s *SessionService) CancelActiveJob(ctx context.Context, classSessionID string) (*ent.ProcessingJob, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := s.client.ProcessingJob.Query().
		Where(processingjob.ClassSessionIDEQ(classSessionID)).
		Order(ent.Desc(processingjob.FieldCreatedAt)).
		First(writeCtx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active job: %w", err)
	}

	switch job.Status {
	case processingjob.StatusDone, processingjob.StatusError, processingjob.StatusCancelled:
		return nil, ErrNotCancellable
	}

	updated, err := job.Update().
		SetStatus(processingjob.StatusCancelled).
		SetFinishedAt(time.Now()).
		ClearOwnerWorkerID().
		Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel job: %w", err)
	}

	return updated, nil
}

// RetryJob enqueues a fresh ProcessingJob for a class session re-running the
// given requested kind (e.g. a failed stage's "reprocess_*" variant).
func (s *SessionService) RetryJob(ctx context.Context, classSessionID string, kind processingjob.RequestedKind) (*ent.ProcessingJob, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.client.ClassSession.Query().Where(classsession.IDEQ(classSessionID)).Only(writeCtx); err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up class session: %w", err)
	}

	job, err := s.client.ProcessingJob.Create().
		SetID(uuid.New().String()).
		SetClassSessionID(classSessionID).
		SetRequestedKind(kind).
		SetStatus(processingjob.StatusPending).
		Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue retry job: %w", err)
	}

	return job, nil
}

// SearchSessions performs a case-insensitive search across subject, topic
// and lecturer name.
func (s *SessionService) SearchSessions(ctx context.Context, query string, limit int) ([]*ent.ClassSession, error) {
	if limit <= 0 {
		limit = 20
	}

	sessions, err := s.client.ClassSession.Query().
		Where(classsession.DeletedAtIsNil()).
		Where(func(sel *sql.Selector) {
			sel.Where(sql.Or(
				sql.ExprP("subject ILIKE $1", "%"+query+"%"),
				sql.ExprP("COALESCE(topic, '') ILIKE $2", "%"+query+"%"),
				sql.ExprP("lecturer_name ILIKE $3", "%"+query+"%"),
			))
		}).
		Limit(limit).
		Order(ent.Desc(classsession.FieldCreatedAt)).
		All(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to search class sessions: %w", err)
	}

	return sessions, nil
}
