package store

import (
	"context"
	"fmt"

	"kb-assist-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo caps document sizes per call; chunk rows carry full vectors, so
// inserts are batched conservatively.
const insertBatchSize = 50

// ChunkStore owns the chunks collection. No other component writes
// chunk rows.
type ChunkStore struct {
	chunks    *mongo.Collection
	documents *mongo.Collection
}

func NewChunkStore(db *mongo.Database) *ChunkStore {
	return &ChunkStore{
		chunks:    db.Collection("chunks"),
		documents: db.Collection("documents"),
	}
}

// Replace deletes all chunks for documentID and inserts the new set in
// batches. The window between delete and last insert is visible to
// concurrent readers: a query racing a re-ingest may observe zero or a
// partial chunk set for this document (eventual consistency by design).
func (s *ChunkStore) Replace(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if _, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}

	for start := 0; start < len(chunks); start += insertBatchSize {
		end := min(start+insertBatchSize, len(chunks))

		docs := make([]interface{}, 0, end-start)
		for _, chunk := range chunks[start:end] {
			docs = append(docs, chunk)
		}

		if _, err := s.chunks.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert chunk batch for document %s: %w", documentID, err)
		}
	}

	return nil
}

// QueryByScope returns every chunk of the tenant's documents with the
// given status, joined with the owning document's name. Order is by
// document then chunk order, which fixes the scan order ties are broken
// by during ranking.
func (s *ChunkStore) QueryByScope(ctx context.Context, tenantID, status string) ([]models.ScopedChunk, error) {
	cursor, err := s.documents.Find(ctx,
		bson.M{"tenant_id": tenantID, "status": status},
		options.Find().SetProjection(bson.M{"_id": 1, "name": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	names := make(map[string]string, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := doc.ID.Hex()
		names[id] = doc.Name
		ids = append(ids, id)
	}

	chunkCursor, err := s.chunks.Find(ctx,
		bson.M{"tenant_id": tenantID, "document_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "document_id", Value: 1}, {Key: "order", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer chunkCursor.Close(ctx)

	var rows []models.Chunk
	if err := chunkCursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}

	scoped := make([]models.ScopedChunk, 0, len(rows))
	for _, row := range rows {
		scoped = append(scoped, models.ScopedChunk{
			Chunk:        row,
			DocumentName: names[row.DocumentID],
		})
	}
	return scoped, nil
}

// DeleteByDocument removes all chunks owned by documentID. Used by the
// document-deletion cascade.
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": documentID})
	return err
}
