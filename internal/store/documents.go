package store

import (
	"context"
	"fmt"
	"time"

	"kb-assist-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DocumentStore manages document lifecycle records. Chunk rows themselves
// are owned by ChunkStore; deletion cascades through it.
type DocumentStore struct {
	documents *mongo.Collection
	chunks    *ChunkStore
}

func NewDocumentStore(db *mongo.Database, chunks *ChunkStore) *DocumentStore {
	return &DocumentStore{
		documents: db.Collection("documents"),
		chunks:    chunks,
	}
}

func (s *DocumentStore) Create(ctx context.Context, tenantID, name string, tagIDs []string) (*models.Document, error) {
	doc := &models.Document{
		ID:         primitive.NewObjectID(),
		TenantID:   tenantID,
		Name:       name,
		Status:     models.DocumentPending,
		TagIDs:     tagIDs,
		UploadedAt: time.Now(),
	}
	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func (s *DocumentStore) Get(ctx context.Context, tenantID, documentID string) (*models.Document, error) {
	objID, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", documentID, err)
	}

	var doc models.Document
	err = s.documents.FindOne(ctx, bson.M{"_id": objID, "tenant_id": tenantID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentStore) List(ctx context.Context, tenantID string) ([]models.Document, error) {
	cursor, err := s.documents.Find(ctx,
		bson.M{"tenant_id": tenantID},
		options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]models.Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// SetStatus transitions the document's approval status. Approving stamps
// approved_at; any other transition clears it.
func (s *DocumentStore) SetStatus(ctx context.Context, tenantID, documentID, status string) error {
	objID, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", documentID, err)
	}

	update := bson.M{"status": status}
	if status == models.DocumentApproved {
		update["approved_at"] = time.Now()
	} else {
		update["approved_at"] = nil
	}

	result, err := s.documents.UpdateOne(ctx,
		bson.M{"_id": objID, "tenant_id": tenantID},
		bson.M{"$set": update},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *DocumentStore) MarkIngested(ctx context.Context, documentID string, chunkCount int) error {
	objID, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", documentID, err)
	}

	_, err = s.documents.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{"chunk_count": chunkCount, "ingested_at": time.Now()}},
	)
	return err
}

// Delete removes the document and cascades to its chunks.
func (s *DocumentStore) Delete(ctx context.Context, tenantID, documentID string) error {
	objID, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", documentID, err)
	}

	result, err := s.documents.DeleteOne(ctx, bson.M{"_id": objID, "tenant_id": tenantID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return s.chunks.DeleteByDocument(ctx, documentID)
}
