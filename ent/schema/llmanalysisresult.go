package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LLMAnalysisResult holds the schema definition for the NLP stage's output.
type LLMAnalysisResult struct {
	ent.Schema
}

// Fields of the LLMAnalysisResult.
func (LLMAnalysisResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("llm_analysis_result_id").
			Unique().
			Immutable(),
		field.String("class_session_id").
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.Text("summary"),
		field.JSON("key_concepts", []string{}),
		field.JSON("class_structure", map[string]interface{}{}),
		field.JSON("terminology_medica", []map[string]interface{}{}).
			Comment("medical terminology with it/es translations, the input to Research"),
		field.JSON("key_moments", []map[string]interface{}{}),
		field.Float("confidence"),
		field.Float("coherence"),
		field.Float("completeness"),
		field.Float("medical_relevance"),
		field.Bool("needs_review").
			Comment("true when confidence < 0.8 or coherence < 0.7"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the LLMAnalysisResult.
func (LLMAnalysisResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("class_session", ClassSession.Type).
			Ref("llm_analysis_results").
			Field("class_session_id").
			Unique().
			Required().
			Immutable(),
		edge.To("research_jobs", ResearchJob.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the LLMAnalysisResult.
func (LLMAnalysisResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id").
			Unique(),
	}
}
