package ai

import (
	"context"
	"fmt"

	"kb-assist-platform/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder turns text into fixed-dimension vectors. All vectors produced
// by one Embedder share a single dimensionality.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Gemini caps batch embedding requests, so larger inputs are sub-batched.
const maxEmbedBatchSize = 100

// GeminiEmbedder embeds text with a Google Generative AI embedding model
// (text-embedding-004 by default).
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, &ConfigurationError{Reason: "missing GEMINI_API_KEY for embeddings"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	return &GeminiEmbedder{
		client:    client,
		model:     cfg.EmbeddingModel,
		dimension: cfg.VectorDimensions,
	}, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &ExternalServiceError{Provider: "gemini", Op: "embed", Err: err}
	}
	if resp.Embedding == nil {
		return nil, &ExternalServiceError{Provider: "gemini", Op: "embed",
			Err: fmt.Errorf("no embedding returned")}
	}
	if err := g.checkDimension(resp.Embedding.Values); err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := g.client.EmbeddingModel(g.model)
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += maxEmbedBatchSize {
		end := min(start+maxEmbedBatchSize, len(texts))

		batch := em.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, &ExternalServiceError{Provider: "gemini", Op: "embed batch", Err: err}
		}
		if len(resp.Embeddings) != end-start {
			return nil, &ExternalServiceError{Provider: "gemini", Op: "embed batch",
				Err: fmt.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), end-start)}
		}

		// Provider guarantees response order matches request order within
		// a call; sub-batches are issued in input order.
		for _, emb := range resp.Embeddings {
			if emb == nil {
				return nil, &ExternalServiceError{Provider: "gemini", Op: "embed batch",
					Err: fmt.Errorf("nil embedding in batch response")}
			}
			if err := g.checkDimension(emb.Values); err != nil {
				return nil, err
			}
			vectors = append(vectors, emb.Values)
		}
	}

	return vectors, nil
}

// checkDimension fails fast when the provider returns a vector of an
// unexpected length. Mixing dimensionalities in one chunk space would
// silently corrupt similarity scores.
func (g *GeminiEmbedder) checkDimension(vec []float32) error {
	if g.dimension > 0 && len(vec) != g.dimension {
		return &ConfigurationError{Reason: fmt.Sprintf(
			"embedding model %q returned %d dimensions, expected %d",
			g.model, len(vec), g.dimension)}
	}
	return nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
