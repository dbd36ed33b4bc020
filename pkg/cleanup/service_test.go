package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/axonote/pipeline/ent/classsession"
	"github.com/axonote/pipeline/pkg/config"
	"github.com/axonote/pipeline/pkg/database"
	"github.com/axonote/pipeline/pkg/models"
	"github.com/axonote/pipeline/pkg/services"
	testdb "github.com/axonote/pipeline/test/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionService(t *testing.T) (*database.Client, *services.SessionService) {
	t.Helper()
	client := testdb.NewTestClient(t)
	return client, services.NewSessionService(client.Client)
}

func newTestSessionRequest() models.CreateSessionRequest {
	return models.CreateSessionRequest{
		ClassSessionID: uuid.New().String(),
		ClassDate:      time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Subject:        "Cardiologia",
		LecturerName:   "Dr. Souza",
	}
}

func TestService_SoftDeletesOldDoneSessions(t *testing.T) {
	client, sessionService := setupSessionService(t)
	eventService := services.NewEventService(client.Client)
	ctx := context.Background()

	session, err := sessionService.CreateSession(ctx, newTestSessionRequest())
	require.NoError(t, err)

	err = client.Client.ClassSession.UpdateOneID(session.ID).
		SetPipelineState(classsession.PipelineStateDone).
		SetUpdatedAt(time.Now().Add(-400 * 24 * time.Hour)).
		Exec(ctx)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		SessionRetentionDays: 365,
		EventTTL:             1 * time.Hour,
		CleanupInterval:      1 * time.Hour,
	}
	svc := NewService(cfg, sessionService, eventService)
	svc.runAll(ctx)

	updated, err := sessionService.GetSession(ctx, session.ID, false)
	require.NoError(t, err)
	assert.NotNil(t, updated.DeletedAt)
}

func TestService_PreservesRecentSessions(t *testing.T) {
	client, sessionService := setupSessionService(t)
	eventService := services.NewEventService(client.Client)
	ctx := context.Background()

	session, err := sessionService.CreateSession(ctx, newTestSessionRequest())
	require.NoError(t, err)

	err = client.Client.ClassSession.UpdateOneID(session.ID).
		SetPipelineState(classsession.PipelineStateDone).
		Exec(ctx)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		SessionRetentionDays: 365,
		EventTTL:             1 * time.Hour,
		CleanupInterval:      1 * time.Hour,
	}
	svc := NewService(cfg, sessionService, eventService)
	svc.runAll(ctx)

	updated, err := sessionService.GetSession(ctx, session.ID, false)
	require.NoError(t, err)
	assert.Nil(t, updated.DeletedAt)
}

func TestService_PreservesOldNonTerminalSessions(t *testing.T) {
	client, sessionService := setupSessionService(t)
	eventService := services.NewEventService(client.Client)
	ctx := context.Background()

	session, err := sessionService.CreateSession(ctx, newTestSessionRequest())
	require.NoError(t, err)

	// Still mid-pipeline despite being old: retention should not touch it.
	err = client.Client.ClassSession.UpdateOneID(session.ID).
		SetPipelineState(classsession.PipelineStateNlp).
		SetUpdatedAt(time.Now().Add(-400 * 24 * time.Hour)).
		Exec(ctx)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		SessionRetentionDays: 365,
		EventTTL:             1 * time.Hour,
		CleanupInterval:      1 * time.Hour,
	}
	svc := NewService(cfg, sessionService, eventService)
	svc.runAll(ctx)

	updated, err := sessionService.GetSession(ctx, session.ID, false)
	require.NoError(t, err)
	assert.Nil(t, updated.DeletedAt)
}

func TestService_CleansUpOldEvents(t *testing.T) {
	client, sessionService := setupSessionService(t)
	eventService := services.NewEventService(client.Client)
	ctx := context.Background()

	session, err := sessionService.CreateSession(ctx, newTestSessionRequest())
	require.NoError(t, err)

	_, err = client.Client.StageEvent.Create().
		SetClassSessionID(session.ID).
		SetEventType("stage.completed").
		SetPayload(map[string]interface{}{}).
		SetCreatedAt(time.Now().Add(-2 * time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	_, err = client.Client.StageEvent.Create().
		SetClassSessionID(session.ID).
		SetEventType("stage.start").
		SetPayload(map[string]interface{}{}).
		Save(ctx)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{
		SessionRetentionDays: 365,
		EventTTL:             1 * time.Hour,
		CleanupInterval:      1 * time.Hour,
	}
	svc := NewService(cfg, sessionService, eventService)
	svc.runAll(ctx)

	events, err := eventService.GetEventsSince(ctx, session.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1, "old event should be deleted, recent event preserved")
}
