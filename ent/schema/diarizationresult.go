package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DiarizationResult holds the schema definition for the diarization stage's output.
type DiarizationResult struct {
	ent.Schema
}

// Fields of the DiarizationResult.
func (DiarizationResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("diarization_result_id").
			Unique().
			Immutable(),
		field.String("class_session_id").
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.Int("speaker_count"),
		field.JSON("segments", []map[string]interface{}{}).
			Comment("start/end/speaker_id/confidence"),
		field.JSON("speaker_embeddings", map[string][]float64{}).
			Comment("speaker_id -> embedding vector"),
		field.JSON("role_assignments", map[string]interface{}{}).
			Comment(`{"professor": speaker_id, "students": [speaker_id...]}`),
		field.Float("role_assignment_confidence"),
		field.Float("separation_quality_score"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the DiarizationResult.
func (DiarizationResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("class_session", ClassSession.Type).
			Ref("diarization_results").
			Field("class_session_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the DiarizationResult.
func (DiarizationResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id").
			Unique(),
	}
}
