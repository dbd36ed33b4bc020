package services

import (
	"context"
	"fmt"
	"time"

	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/ent/stageevent"
)

// EventService manages WebSocket event distribution backed by the
// stage_events table (the durable store behind Postgres LISTEN/NOTIFY
// catchup queries).
type EventService struct {
	client *ent.Client
}

// NewEventService creates a new EventService.
func NewEventService(client *ent.Client) *EventService {
	return &EventService{client: client}
}

// GetEventsSince retrieves events for a class session since a given row ID,
// ordered oldest-first, capped at limit.
func (s *EventService) GetEventsSince(ctx context.Context, classSessionID string, sinceID, limit int) ([]*ent.StageEvent, error) {
	events, err := s.client.StageEvent.Query().
		Where(
			stageevent.ClassSessionIDEQ(classSessionID),
			stageevent.IDGT(sinceID),
		).
		Order(ent.Asc(stageevent.FieldID)).
		Limit(limit).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	return events, nil
}

// CleanupSessionEvents removes all events for a class session.
func (s *EventService) CleanupSessionEvents(ctx context.Context, classSessionID string) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := s.client.StageEvent.Delete().
		Where(stageevent.ClassSessionIDEQ(classSessionID)).
		Exec(writeCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup session events: %w", err)
	}

	return count, nil
}

// CleanupOrphanedEvents removes events older than the given retention window.
func (s *EventService) CleanupOrphanedEvents(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)

	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.client.StageEvent.Delete().
		Where(stageevent.CreatedAtLT(cutoff)).
		Exec(writeCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup orphaned events: %w", err)
	}

	return count, nil
}
