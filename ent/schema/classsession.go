package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ClassSession holds the schema definition for one recorded lecture.
type ClassSession struct {
	ent.Schema
}

// Fields of the ClassSession.
func (ClassSession) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("class_session_id").
			Unique().
			Immutable(),
		field.Time("class_date").
			Comment("Date the lecture was recorded"),
		field.String("subject").
			Comment("e.g., 'Cardiologia'"),
		field.String("topic").
			Optional().
			Nillable(),
		field.String("lecturer_name"),
		field.String("lecturer_ref").
			Optional().
			Nillable().
			Comment("Opaque reference to a professor record, out of scope here"),
		field.String("audio_url").
			Optional().
			Nillable().
			Comment("Set post-assembly; non-null iff pipeline_state >= ASR"),
		field.Float("duration_seconds").
			Optional().
			Nillable().
			Comment("Set post-ASR"),
		field.Enum("pipeline_state").
			Values("uploaded", "asr", "diarization", "postprocess", "nlp", "research", "export", "done", "error").
			Default("uploaded"),
		field.String("last_error").
			Optional().
			Nillable(),
		field.JSON("error_details", map[string]interface{}{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("deleted_at").
			Optional().
			Nillable().
			Comment("Soft delete for retention policy"),
	}
}

// Edges of the ClassSession.
func (ClassSession) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("upload_sessions", UploadSession.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("processing_jobs", ProcessingJob.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("transcription_results", TranscriptionResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("diarization_results", DiarizationResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("post_processing_results", PostProcessingResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("llm_analysis_results", LLMAnalysisResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("stage_events", StageEvent.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the ClassSession.
func (ClassSession) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("pipeline_state"),
		index.Fields("subject"),
		index.Fields("pipeline_state", "created_at"),
		index.Fields("deleted_at").
			Annotations(entsql.IndexWhere("deleted_at IS NOT NULL")),
	}
}

func (ClassSession) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
