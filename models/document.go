package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document lifecycle status. Only approved documents contribute chunks
// to retrieval.
const (
	DocumentPending  = "pending"
	DocumentApproved = "approved"
	DocumentRejected = "rejected"
)

// Document is the root of the knowledge base ownership graph: deleting a
// document deletes its chunks.
type Document struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID   string             `bson:"tenant_id" json:"tenant_id"`
	Name       string             `bson:"name" json:"name"`
	Status     string             `bson:"status" json:"status"`
	TagIDs     []string           `bson:"tag_ids,omitempty" json:"tag_ids,omitempty"`
	ChunkCount int                `bson:"chunk_count" json:"chunk_count"`
	UploadedAt time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	IngestedAt *time.Time         `bson:"ingested_at,omitempty" json:"ingested_at,omitempty"`
	ApprovedAt *time.Time         `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
}

// Tag is a tenant-owned label applied to documents (visibility) and to
// users (capability).
type Tag struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID string             `bson:"tenant_id" json:"tenant_id"`
	Name     string             `bson:"name" json:"name"`
}

type CreateDocumentRequest struct {
	Name   string   `json:"name" binding:"required,min=1,max=200"`
	Text   string   `json:"text" binding:"required"`
	TagIDs []string `json:"tag_ids,omitempty"`
}

type DocumentResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	TagIDs     []string   `json:"tag_ids,omitempty"`
	ChunkCount int        `json:"chunk_count"`
	UploadedAt time.Time  `json:"uploaded_at"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`
}
