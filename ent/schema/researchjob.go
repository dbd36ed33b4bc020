package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ResearchJob holds the schema definition for the orchestrator of a batch of
// per-term researches belonging to one LLMAnalysisResult.
type ResearchJob struct {
	ent.Schema
}

// Fields of the ResearchJob.
func (ResearchJob) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("research_job_id").
			Unique().
			Immutable(),
		field.String("llm_analysis_result_id").
			Immutable(),
		field.String("preset").
			Comment("COMPREHENSIVE, QUICK, ACADEMIC, CLINICAL, ITALIAN_FOCUSED"),
		field.Enum("status").
			Values("pending", "running", "done", "error", "cancelled").
			Default("pending"),
		field.Int("terms_total"),
		field.Int("terms_researched").
			Default(0),
		field.String("current_term").
			Optional().
			Nillable(),
		field.Int("progress_pct").
			Default(0),
		field.Int("cache_hits").
			Default(0),
		field.Int("cache_misses").
			Default(0),
		field.JSON("warnings", []string{}).
			Optional(),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("finished_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ResearchJob.
func (ResearchJob) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("llm_analysis_result", LLMAnalysisResult.Type).
			Ref("research_jobs").
			Field("llm_analysis_result_id").
			Unique().
			Required().
			Immutable(),
		edge.To("results", ResearchResult.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the ResearchJob.
func (ResearchJob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("llm_analysis_result_id"),
	}
}
