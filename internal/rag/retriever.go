package rag

import (
	"context"
	"fmt"
	"math"
	"sort"

	"kb-assist-platform/internal/ai"
	"kb-assist-platform/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ChunkSource is the persistence boundary for chunk rows.
type ChunkSource interface {
	// Replace swaps the full chunk set for a document. The swap is
	// delete-then-insert, not transactional: a concurrent read may see
	// zero or a partial set for that document while it runs.
	Replace(ctx context.Context, documentID string, chunks []models.Chunk) error

	// QueryByScope returns every chunk, joined with its owning document's
	// name, for documents in the tenant with the given status.
	QueryByScope(ctx context.Context, tenantID, status string) ([]models.ScopedChunk, error)
}

// AccessChecker narrows a candidate document set to what a user may see.
type AccessChecker interface {
	FilterAccessibleDocuments(ctx context.Context, userID, tenantID string, documentIDs []string) ([]string, error)
}

// RankedChunk is one retrieval hit.
type RankedChunk struct {
	Content      string  `json:"content"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Similarity   float64 `json:"similarity"`
}

// Retriever ranks a tenant's approved chunks against a query by cosine
// similarity. The scan is a deliberate brute-force pass over every
// candidate; swapping in an indexed nearest-neighbor structure only
// requires replacing this type.
type Retriever struct {
	embedder ai.Embedder
	chunks   ChunkSource
	access   AccessChecker
}

func NewRetriever(embedder ai.Embedder, chunks ChunkSource, access AccessChecker) *Retriever {
	return &Retriever{embedder: embedder, chunks: chunks, access: access}
}

// Rank embeds the query and returns the topK most similar approved
// chunks in the tenant. An empty userID skips per-user access filtering
// (trusted internal callers); otherwise inaccessible documents are
// dropped before scoring, never as a tie-break. An empty result is a
// valid outcome, not an error.
func (r *Retriever) Rank(ctx context.Context, query, tenantID string, topK int, userID string) ([]RankedChunk, error) {
	tracer := otel.Tracer("knowledge-core")
	ctx, span := tracer.Start(ctx, "retriever.rank")
	defer span.End()

	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.Int("retrieval.top_k", topK),
	)

	if topK <= 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := r.chunks.QueryByScope(ctx, tenantID, models.DocumentApproved)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.candidates", len(candidates)))

	if userID != "" {
		candidates, err = r.restrictToAccessible(ctx, userID, tenantID, candidates)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.Int("retrieval.accessible", len(candidates)))
	}

	ranked := make([]RankedChunk, 0, len(candidates))
	for _, c := range candidates {
		// A stored vector from a different embedding model must not be
		// scored against the query: a truncated-prefix comparison looks
		// plausible but is meaningless.
		if len(c.Vector) != len(queryVec) {
			return nil, &ai.ConfigurationError{Reason: fmt.Sprintf(
				"chunk of document %s has a %d-dimension vector, query has %d; re-ingest after changing embedding models",
				c.DocumentID, len(c.Vector), len(queryVec))}
		}
		ranked = append(ranked, RankedChunk{
			Content:      c.Text,
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.Order,
			Similarity:   CosineSimilarity(queryVec, c.Vector),
		})
	}

	// Stable sort keeps scan order for equal scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

func (r *Retriever) restrictToAccessible(ctx context.Context, userID, tenantID string, candidates []models.ScopedChunk) ([]models.ScopedChunk, error) {
	seen := make(map[string]bool)
	documentIDs := make([]string, 0)
	for _, c := range candidates {
		if !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			documentIDs = append(documentIDs, c.DocumentID)
		}
	}

	accessible, err := r.access.FilterAccessibleDocuments(ctx, userID, tenantID, documentIDs)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(accessible))
	for _, id := range accessible {
		allowed[id] = true
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if allowed[c.DocumentID] {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// CosineSimilarity returns the alignment of two vectors in [-1, 1].
// A zero-norm operand yields 0 rather than dividing by zero, and so do
// vectors of unequal length: scoring a truncated prefix would report a
// confident similarity between incomparable embeddings.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
