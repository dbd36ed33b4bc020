package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StageEvent holds the schema definition for a transient progress/notification
// event published over the class_session's channel (§4.3/§4.4 progress
// reporting, §4.9 warnings). Cleaned up by pkg/cleanup after a grace period —
// this table is the durable backing store behind Postgres LISTEN/NOTIFY
// catchup queries (mirrors the teacher's pkg/events catchup design).
type StageEvent struct {
	ent.Schema
}

// Fields of the StageEvent.
func (StageEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("class_session_id").
			Immutable(),
		field.String("job_id").
			Optional().
			Nillable(),
		field.String("stage").
			Optional().
			Nillable(),
		field.String("event_type").
			Comment("stage.start, stage.progress, stage.completed, stage.failed, job.cancelled, ..."),
		field.JSON("payload", map[string]interface{}{}),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the StageEvent.
func (StageEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("class_session", ClassSession.Type).
			Ref("stage_events").
			Field("class_session_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the StageEvent.
func (StageEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("class_session_id", "id"),
		index.Fields("created_at"),
	}
}
