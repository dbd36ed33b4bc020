package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// UploadSession holds the schema definition for a chunked-ingestion descriptor.
type UploadSession struct {
	ent.Schema
}

// Fields of the UploadSession.
func (UploadSession) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("upload_session_id").
			Unique().
			Immutable(),
		field.String("class_session_id").
			Immutable(),
		field.String("original_filename"),
		field.String("sanitized_filename"),
		field.String("content_type"),
		field.Int64("total_size").
			Optional().
			Nillable(),
		field.Int64("chunk_size"),
		field.Int("expected_chunk_count").
			Optional().
			Nillable(),
		field.String("expected_checksum").
			Optional().
			Nillable().
			Comment("MD5 of the whole assembled file, supplied at create time"),
		field.String("computed_checksum").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("initiated", "uploading", "validating", "assembling", "completed", "error", "cancelled", "expired").
			Default("initiated"),
		field.Int64("bytes_uploaded").
			Default(0),
		field.Float("upload_speed_bps").
			Default(0).
			Comment("EMA of bytes/sec over the last N chunks"),
		field.String("final_url").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Time("expires_at"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the UploadSession.
func (UploadSession) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("class_session", ClassSession.Type).
			Ref("upload_sessions").
			Field("class_session_id").
			Unique().
			Required().
			Immutable(),
		edge.To("chunks", ChunkUpload.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the UploadSession.
func (UploadSession) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("class_session_id", "status"),
		index.Fields("expires_at", "status"),
		// At most one active (non-terminal) UploadSession per ClassSession
		// (spec.md §9 Open Question, resolved in DESIGN.md).
		index.Fields("class_session_id").
			Unique().
			Annotations(entsql.IndexWhere(
				"status NOT IN ('completed', 'error', 'cancelled', 'expired')")),
	}
}
