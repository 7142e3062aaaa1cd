package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chunk is a denormalized per-chunk row. Keeping chunks in their own
// collection lets retrieval load a tenant scope without touching
// document bodies.
type Chunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DocumentID string             `bson:"document_id"`
	TenantID   string             `bson:"tenant_id"`
	Order      int                `bson:"order"`
	Text       string             `bson:"text"`
	Vector     []float32          `bson:"vector,omitempty"`
	Metadata   map[string]string  `bson:"metadata,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// ScopedChunk is a chunk joined with its owning document's name, as
// returned by tenant-scoped lookups.
type ScopedChunk struct {
	Chunk
	DocumentName string
}
