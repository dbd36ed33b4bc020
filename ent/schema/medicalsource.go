package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MedicalSource holds the schema definition for one bibliographic record
// returned by a Source Fetcher (C9) and attached to a ResearchResult.
type MedicalSource struct {
	ent.Schema
}

// Fields of the MedicalSource.
func (MedicalSource) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("medical_source_id").
			Unique().
			Immutable(),
		field.String("research_result_id").
			Immutable(),
		field.String("source_type").
			Comment("pubmed, who, nih, cochrane, uptodate, aifa, mayo, medlineplus, webmd, other"),
		field.String("title"),
		field.String("url"),
		field.JSON("authors", []string{}).
			Optional(),
		field.Time("publication_date").
			Optional().
			Nillable(),
		field.String("doi").
			Optional().
			Nillable(),
		field.String("pmid").
			Optional().
			Nillable(),
		field.String("journal").
			Optional().
			Nillable(),
		field.Text("abstract").
			Optional(),
		field.JSON("key_points", []string{}).
			Optional(),
		field.Text("relevant_excerpt").
			Optional(),
		field.Text("conclusions").
			Optional(),
		field.JSON("keywords", []string{}).
			Optional(),
		field.String("content_category").
			Optional().
			Nillable(),
		field.String("specialty").
			Optional().
			Nillable(),
		field.String("complexity_level").
			Optional().
			Nillable(),
		field.String("target_audience").
			Optional().
			Nillable(),
		field.Bool("peer_reviewed").
			Default(false),
		field.Bool("official_source").
			Default(false),
		field.Bool("high_impact_journal").
			Default(false),
		field.String("access_type").
			Default("open"),
		field.Float("relevance_score"),
		field.Float("authority_score"),
		field.Float("recency_score"),
		field.Float("content_quality_score"),
		field.Float("overall_score"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the MedicalSource.
func (MedicalSource) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("research_result", ResearchResult.Type).
			Ref("sources").
			Field("research_result_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the MedicalSource.
func (MedicalSource) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("research_result_id"),
		index.Fields("source_type"),
	}
}
