package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TranscriptionResult holds the schema definition for the ASR stage's output.
type TranscriptionResult struct {
	ent.Schema
}

// Fields of the TranscriptionResult.
func (TranscriptionResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("transcription_result_id").
			Unique().
			Immutable(),
		field.String("class_session_id").
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.Text("full_text"),
		field.JSON("segments", []map[string]interface{}{}).
			Comment("start/end/text/confidence, covering [0,duration] without overlap"),
		field.JSON("word_timestamps", []map[string]interface{}{}).
			Optional(),
		field.String("detected_language"),
		field.Float("global_confidence"),
		field.Float("audio_duration_seconds"),
		field.String("model_identifier"),
		field.Int("processing_time_ms"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the TranscriptionResult.
func (TranscriptionResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("class_session", ClassSession.Type).
			Ref("transcription_results").
			Field("class_session_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the TranscriptionResult.
func (TranscriptionResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id").
			Unique(),
	}
}
