package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SourceCache holds the schema definition for the content-addressed, TTL-governed
// research cache (C8). It has no owning entity — it is a process-wide store.
type SourceCache struct {
	ent.Schema
}

// Fields of the SourceCache.
func (SourceCache) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("source_cache_id").
			Unique().
			Immutable(),
		field.String("cache_key").
			Comment("SHA-256 of lowercase-trimmed term + canonical-serialized config"),
		field.String("medical_term"),
		field.String("normalized_term"),
		field.String("search_config_hash"),
		field.Bytes("cached_results").
			Comment("JSON blob, optionally gzip-compressed"),
		field.Int("sources_count").
			Default(0),
		field.String("cache_version").
			Default("1.0"),
		field.String("language").
			Default("it"),
		field.JSON("source_types", []string{}).
			Optional(),
		field.String("research_preset").
			Optional().
			Nillable(),
		field.JSON("results_metadata", map[string]interface{}{}).
			Optional(),
		field.Time("expires_at"),
		field.Int("original_ttl_hours").
			Default(168),
		field.String("content_type").
			Optional().
			Nillable().
			Comment("academic, clinical, general, drug_info, epidemiology, news"),
		field.Time("last_accessed").
			Default(time.Now),
		field.Int("access_count").
			Default(0),
		field.Int("hits_since_update").
			Default(0),
		field.Float("access_frequency").
			Default(0),
		field.Time("frequency_calculated_at").
			Default(time.Now),
		field.Float("average_relevance").
			Default(0),
		field.Float("average_authority").
			Default(0),
		field.Float("average_freshness").
			Default(0),
		field.Float("cache_quality_score").
			Default(0),
		field.Bool("is_valid").
			Default(true),
		field.String("invalidation_reason").
			Optional().
			Nillable(),
		field.Time("invalidated_at").
			Optional().
			Nillable(),
		field.Bool("needs_refresh").
			Default(false),
		field.String("refresh_reason").
			Optional().
			Nillable(),
		field.Int("generation_time_ms").
			Optional().
			Nillable(),
		field.Bool("is_compressed").
			Default(false),
		field.String("compression_algorithm").
			Optional().
			Nillable(),
		field.Float("compression_ratio").
			Optional().
			Nillable(),
		field.Int("cache_size_bytes").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the SourceCache.
func (SourceCache) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("normalized_term", "language"),
		index.Fields("expires_at", "is_valid"),
		index.Fields("access_count", "last_accessed"),
		index.Fields("cache_quality_score", "average_relevance"),
		index.Fields("cache_key").
			Unique().
			Annotations(entsql.IndexWhere("is_valid")),
	}
}
