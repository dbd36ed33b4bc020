package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProcessingJob holds the schema definition for the coordination record of a
// pipeline run on a ClassSession.
type ProcessingJob struct {
	ent.Schema
}

// Fields of the ProcessingJob.
func (ProcessingJob) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("processing_job_id").
			Unique().
			Immutable(),
		field.String("class_session_id").
			Immutable(),
		field.Enum("requested_kind").
			Values("full", "asr_only", "diarization_only", "reprocess_asr",
				"reprocess_diarization", "reprocess_postprocess", "reprocess_nlp",
				"reprocess_research").
			Default("full"),
		field.Int("priority").
			Default(0),
		field.Enum("status").
			Values("pending", "running", "done", "error", "cancelled", "paused").
			Default("pending"),
		field.Enum("current_stage").
			Values("asr", "diarization", "postprocess", "nlp", "research", "export").
			Optional().
			Nillable(),
		field.Int("progress_pct").
			Default(0),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("finished_at").
			Optional().
			Nillable(),
		field.Int("retry_count").
			Default(0),
		field.Int("max_retries").
			Default(3),
		field.String("device_used").
			Optional().
			Nillable().
			Comment("Which recognizer backend (GPU/CPU) handled the current stage"),
		field.String("queue_task_id").
			Optional().
			Nillable(),
		field.String("last_error").
			Optional().
			Nillable(),
		field.JSON("error_details", map[string]interface{}{}).
			Optional(),
		field.JSON("warnings", []string{}).
			Optional().
			Comment("Partial/degraded failures that did not fail the job"),
		field.String("owner_worker_id").
			Optional().
			Nillable().
			Comment("For multi-replica claim visibility"),
		field.Time("last_heartbeat_at").
			Optional().
			Nillable().
			Comment("For orphan detection"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the ProcessingJob.
func (ProcessingJob) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("class_session", ClassSession.Type).
			Ref("processing_jobs").
			Field("class_session_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ProcessingJob.
func (ProcessingJob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("status", "current_stage", "priority", "created_at"),
		index.Fields("class_session_id"),
	}
}
