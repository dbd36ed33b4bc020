package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PostProcessingResult holds the schema definition for the post-processing stage's output.
type PostProcessingResult struct {
	ent.Schema
}

// Fields of the PostProcessingResult.
func (PostProcessingResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("post_processing_result_id").
			Unique().
			Immutable(),
		field.String("class_session_id").
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.Text("corrected_text"),
		field.JSON("corrections", []map[string]interface{}{}).
			Comment("offset/original/replacement/confidence"),
		field.JSON("medical_entities", map[string][]map[string]interface{}{}).
			Comment("grouped by category: anatomy/pathology/pharmacology/..."),
		field.JSON("class_glossary", []map[string]interface{}{}).
			Optional(),
		field.JSON("structural_segments", []map[string]interface{}{}).
			Comment("time-span -> pedagogical activity"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the PostProcessingResult.
func (PostProcessingResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("class_session", ClassSession.Type).
			Ref("post_processing_results").
			Field("class_session_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the PostProcessingResult.
func (PostProcessingResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id").
			Unique(),
	}
}
