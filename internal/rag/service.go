package rag

import (
	"context"
	"time"

	"kb-assist-platform/internal/ai"
	"kb-assist-platform/internal/logger"
	"kb-assist-platform/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Service is the caller surface of the knowledge core: Ingest turns
// extracted document text into stored chunk vectors, Answer resolves a
// query against them. Both are stateless beyond the persistent store and
// safe to run at arbitrary worker concurrency.
type Service struct {
	splitter *Splitter
	embedder ai.Embedder
	chunks   ChunkSource
	answerer *Answerer
}

func NewService(splitter *Splitter, embedder ai.Embedder, chunks ChunkSource, answerer *Answerer) *Service {
	return &Service{
		splitter: splitter,
		embedder: embedder,
		chunks:   chunks,
		answerer: answerer,
	}
}

// Ingest splits text, embeds the chunks in batches and replaces the
// document's stored chunk set. Re-ingesting fully supersedes the previous
// set; empty text clears it. Returns the stored chunk count.
func (s *Service) Ingest(ctx context.Context, documentID, tenantID, text string) (int, error) {
	tracer := otel.Tracer("knowledge-core")
	ctx, span := tracer.Start(ctx, "knowledge.ingest")
	defer span.End()

	span.SetAttributes(
		attribute.String("document.id", documentID),
		attribute.String("tenant.id", tenantID),
	)

	parts := s.splitter.Split(text)
	span.SetAttributes(attribute.Int("ingest.chunks", len(parts)))

	if len(parts) == 0 {
		if err := s.chunks.Replace(ctx, documentID, nil); err != nil {
			return 0, err
		}
		return 0, nil
	}

	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	rows := make([]models.Chunk, len(parts))
	for i, p := range parts {
		rows[i] = models.Chunk{
			DocumentID: documentID,
			TenantID:   tenantID,
			Order:      p.Index,
			Text:       p.Text,
			Vector:     vectors[i],
			Metadata:   map[string]string{"chunk_id": uuid.NewString()},
			CreatedAt:  now,
		}
	}

	if err := s.chunks.Replace(ctx, documentID, rows); err != nil {
		return 0, err
	}

	logger.Info("Document ingested", "document_id", documentID,
		"tenant_id", tenantID, "chunks", len(rows))
	return len(rows), nil
}

// Answer resolves query against the tenant's approved knowledge base,
// scoped to what userID may see when userID is non-empty.
func (s *Service) Answer(ctx context.Context, query, tenantID string, history []models.ConversationTurn, userID string) (string, error) {
	return s.answerer.Generate(ctx, query, tenantID, history, userID)
}
