package events

import (
	"context"
	"strings"

	"github.com/axonote/pipeline/ent"
)

// eventQuerier abstracts the event query method needed by EventServiceAdapter.
// Implemented by *services.EventService.
type eventQuerier interface {
	GetEventsSince(ctx context.Context, classSessionID string, sinceID, limit int) ([]*ent.StageEvent, error)
}

// EventServiceAdapter wraps an eventQuerier to implement CatchupQuerier.
type EventServiceAdapter struct {
	querier eventQuerier
}

// NewEventServiceAdapter creates a CatchupQuerier from an EventService.
func NewEventServiceAdapter(es eventQuerier) *EventServiceAdapter {
	return &EventServiceAdapter{querier: es}
}

// sessionChannelPrefix mirrors SessionChannel's format so the adapter can
// recover the class session id a client subscribed under.
const sessionChannelPrefix = "class_session:"

// GetCatchupEvents queries events since sinceID up to limit for the catchup mechanism.
// Only per-session channels ("class_session:<id>") are backed by durable storage;
// the global dashboard channel is notify-only and has nothing to catch up on.
func (a *EventServiceAdapter) GetCatchupEvents(ctx context.Context, channel string, sinceID, limit int) ([]CatchupEvent, error) {
	classSessionID, ok := strings.CutPrefix(channel, sessionChannelPrefix)
	if !ok {
		return nil, nil
	}

	events, err := a.querier.GetEventsSince(ctx, classSessionID, sinceID, limit)
	if err != nil {
		return nil, err
	}

	result := make([]CatchupEvent, len(events))
	for i, evt := range events {
		result[i] = CatchupEvent{
			ID:      evt.ID,
			Payload: evt.Payload,
		}
	}
	return result, nil
}
