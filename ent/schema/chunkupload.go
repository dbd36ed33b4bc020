package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ChunkUpload holds the schema definition for an append-only received-chunk record.
type ChunkUpload struct {
	ent.Schema
}

// Fields of the ChunkUpload.
func (ChunkUpload) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("chunk_upload_id").
			Unique().
			Immutable(),
		field.String("upload_session_id").
			Immutable(),
		field.Int("chunk_number").
			Comment("1-based"),
		field.Int64("size_bytes"),
		field.String("checksum").
			Comment("MD5 of the chunk body"),
		field.Time("received_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ChunkUpload.
func (ChunkUpload) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("upload_session", UploadSession.Type).
			Ref("chunks").
			Field("upload_session_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ChunkUpload.
func (ChunkUpload) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("upload_session_id", "chunk_number").
			Unique(),
	}
}
