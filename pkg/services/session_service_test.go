package services

import (
	"context"
	"testing"
	"time"

	"github.com/axonote/pipeline/ent/classsession"
	"github.com/axonote/pipeline/ent/processingjob"
	"github.com/axonote/pipeline/pkg/models"
	testdb "github.com/axonote/pipeline/test/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreateRequest() models.CreateSessionRequest {
	return models.CreateSessionRequest{
		ClassSessionID: uuid.New().String(),
		ClassDate:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Subject:        "Cardiologia",
		Topic:          "Arritmias",
		LecturerName:   "Dr. Souza",
	}
}

func TestSessionService_CreateSession(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := setupTestSessionService(t, client.Client)
	ctx := context.Background()

	t.Run("creates session with initial processing job", func(t *testing.T) {
		req := newCreateRequest()

		session, err := service.CreateSession(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, req.ClassSessionID, session.ID)
		assert.Equal(t, req.Subject, session.Subject)
		assert.Equal(t, req.LecturerName, session.LecturerName)
		assert.Equal(t, classsession.PipelineStateUploaded, session.PipelineState)
		assert.NotZero(t, session.CreatedAt)

		jobs, err := client.Client.ProcessingJob.Query().
			Where(processingjob.ClassSessionIDEQ(session.ID)).
			All(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, processingjob.RequestedKindFull, jobs[0].RequestedKind)
		assert.Equal(t, processingjob.StatusPending, jobs[0].Status)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		req := newCreateRequest()
		req.Subject = ""

		_, err := service.CreateSession(ctx, req)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("rejects duplicate class session id", func(t *testing.T) {
		req := newCreateRequest()

		_, err := service.CreateSession(ctx, req)
		require.NoError(t, err)

		_, err = service.CreateSession(ctx, req)
		require.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestSessionService_GetSession(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := setupTestSessionService(t, client.Client)
	ctx := context.Background()

	req := newCreateRequest()
	created, err := service.CreateSession(ctx, req)
	require.NoError(t, err)

	t.Run("returns session without edges", func(t *testing.T) {
		session, err := service.GetSession(ctx, created.ID, false)
		require.NoError(t, err)
		assert.Equal(t, created.ID, session.ID)
		assert.Nil(t, session.Edges.ProcessingJobs)
	})

	t.Run("returns session with edges loaded", func(t *testing.T) {
		session, err := service.GetSession(ctx, created.ID, true)
		require.NoError(t, err)
		assert.Len(t, session.Edges.ProcessingJobs, 1)
	})

	t.Run("returns ErrNotFound for unknown id", func(t *testing.T) {
		_, err := service.GetSession(ctx, "does-not-exist", false)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSessionService_ListSessions(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := setupTestSessionService(t, client.Client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		req := newCreateRequest()
		req.Subject = "Neurologia"
		_, err := service.CreateSession(ctx, req)
		require.NoError(t, err)
	}

	t.Run("filters by subject and paginates", func(t *testing.T) {
		resp, err := service.ListSessions(ctx, models.SessionFilters{
			Subject: "Neurologia",
			Limit:   2,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.TotalCount)
		assert.Len(t, resp.Sessions, 2)
		assert.Equal(t, 2, resp.Limit)
	})

	t.Run("excludes soft-deleted sessions by default", func(t *testing.T) {
		req := newCreateRequest()
		created, err := service.CreateSession(ctx, req)
		require.NoError(t, err)

		err = client.Client.ClassSession.UpdateOneID(created.ID).
			SetDeletedAt(time.Now()).
			Exec(ctx)
		require.NoError(t, err)

		resp, err := service.ListSessions(ctx, models.SessionFilters{Subject: req.Subject})
		require.NoError(t, err)
		assert.Equal(t, 0, resp.TotalCount)

		resp, err = service.ListSessions(ctx, models.SessionFilters{Subject: req.Subject, IncludeDeleted: true})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.TotalCount)
	})
}

func TestSessionService_UpdateSessionPipelineState(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := setupTestSessionService(t, client.Client)
	ctx := context.Background()

	req := newCreateRequest()
	created, err := service.CreateSession(ctx, req)
	require.NoError(t, err)

	err = service.UpdateSessionPipelineState(ctx, created.ID, classsession.PipelineStateAsr)
	require.NoError(t, err)

	session, err := client.Client.ClassSession.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, classsession.PipelineStateAsr, session.PipelineState)

	t.Run("returns ErrNotFound for unknown id", func(t *testing.T) {
		err := service.UpdateSessionPipelineState(ctx, "does-not-exist", classsession.PipelineStateDone)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSessionService_SoftDeleteOldSessions(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := setupTestSessionService(t, client.Client)
	ctx := context.Background()

	req := newCreateRequest()
	created, err := service.CreateSession(ctx, req)
	require.NoError(t, err)

	// Not terminal yet: should not be picked up regardless of age.
	err = client.Client.ClassSession.UpdateOneID(created.ID).
		SetUpdatedAt(time.Now().Add(-100 * 24 * time.Hour)).
		Exec(ctx)
	require.NoError(t, err)

	count, err := service.SoftDeleteOldSessions(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = client.Client.ClassSession.UpdateOneID(created.ID).
		SetPipelineState(classsession.PipelineStateDone).
		SetUpdatedAt(time.Now().Add(-100 * 24 * time.Hour)).
		Exec(ctx)
	require.NoError(t, err)

	count, err = service.SoftDeleteOldSessions(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	session, err := client.Client.ClassSession.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, session.DeletedAt)

	t.Run("rejects non-positive retention", func(t *testing.T) {
		_, err := service.SoftDeleteOldSessions(ctx, 0)
		assert.Error(t, err)
	})
}

func TestSessionService_RestoreSession(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := setupTestSessionService(t, client.Client)
	ctx := context.Background()

	req := newCreateRequest()
	created, err := service.CreateSession(ctx, req)
	require.NoError(t, err)

	err = client.Client.ClassSession.UpdateOneID(created.ID).
		SetDeletedAt(time.Now()).
		Exec(ctx)
	require.NoError(t, err)

	err = service.RestoreSession(ctx, created.ID)
	require.NoError(t, err)

	session, err := client.Client.ClassSession.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, session.DeletedAt)
}

func TestSessionService_SearchSessions(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := setupTestSessionService(t, client.Client)
	ctx := context.Background()

	req := newCreateRequest()
	req.Subject = "Cardiologia Avancada"
	req.LecturerName = "Dr. Oliveira"
	_, err := service.CreateSession(ctx, req)
	require.NoError(t, err)

	t.Run("matches on subject, case-insensitive", func(t *testing.T) {
		results, err := service.SearchSessions(ctx, "cardio", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, req.ClassSessionID, results[0].ID)
	})

	t.Run("matches on lecturer name", func(t *testing.T) {
		results, err := service.SearchSessions(ctx, "oliveira", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
	})

	t.Run("returns no results for unmatched query", func(t *testing.T) {
		results, err := service.SearchSessions(ctx, "nonexistent-subject", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
