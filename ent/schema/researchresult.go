package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ResearchResult holds the schema definition for a single term's research outcome.
type ResearchResult struct {
	ent.Schema
}

// Fields of the ResearchResult.
func (ResearchResult) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("research_result_id").
			Unique().
			Immutable(),
		field.String("research_job_id").
			Immutable(),
		field.String("term"),
		field.String("normalized_term"),
		field.Text("primary_definition"),
		field.JSON("alternative_definitions", []map[string]interface{}{}).
			Optional(),
		field.JSON("translations", map[string]string{}).
			Comment("it/es/en"),
		field.JSON("synonyms", []string{}).
			Optional(),
		field.JSON("related_terms", []string{}).
			Optional(),
		field.Float("confidence"),
		field.Float("source_reliability"),
		field.Float("freshness"),
		field.Float("consensus"),
		field.String("quality_grade").
			Comment("A..F, derived from weighted quality dimensions"),
		field.Bool("from_cache").
			Default(false),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ResearchResult.
func (ResearchResult) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("research_job", ResearchJob.Type).
			Ref("results").
			Field("research_job_id").
			Unique().
			Required().
			Immutable(),
		edge.To("sources", MedicalSource.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the ResearchResult.
func (ResearchResult) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("research_job_id", "normalized_term").
			Unique(),
	}
}
