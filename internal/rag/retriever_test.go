package rag

import (
	"context"
	"math"
	"testing"

	"kb-assist-platform/internal/ai"
	"kb-assist-platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	dim     int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeChunkSource struct {
	scoped   []models.ScopedChunk
	replaced map[string][]models.Chunk
}

func (f *fakeChunkSource) Replace(_ context.Context, documentID string, chunks []models.Chunk) error {
	if f.replaced == nil {
		f.replaced = make(map[string][]models.Chunk)
	}
	f.replaced[documentID] = chunks
	return nil
}

func (f *fakeChunkSource) QueryByScope(_ context.Context, tenantID, status string) ([]models.ScopedChunk, error) {
	out := make([]models.ScopedChunk, 0)
	for _, c := range f.scoped {
		if c.TenantID == tenantID && status == models.DocumentApproved {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAccess struct {
	allowed map[string]bool
	calls   int
}

func (f *fakeAccess) FilterAccessibleDocuments(_ context.Context, userID, tenantID string, documentIDs []string) ([]string, error) {
	f.calls++
	out := make([]string, 0)
	for _, id := range documentIDs {
		if f.allowed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func scopedChunk(docID, docName, tenantID string, order int, text string, vec []float32) models.ScopedChunk {
	return models.ScopedChunk{
		Chunk: models.Chunk{
			DocumentID: docID,
			TenantID:   tenantID,
			Order:      order,
			Text:       text,
			Vector:     vec,
		},
		DocumentName: docName,
	}
}

func TestCosineSimilarityProperties(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}
	neg := make([]float32, len(v))
	for i := range v {
		neg[i] = -v[i]
	}

	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity(v, neg), 1e-9)

	zero := make([]float32, len(v))
	sim := CosineSimilarity(v, zero)
	assert.Equal(t, 0.0, sim)
	assert.False(t, math.IsNaN(sim))
	assert.Equal(t, 0.0, CosineSimilarity(zero, zero))
}

func TestCosineSimilarityMismatchedLengthsScoreZero(t *testing.T) {
	long := []float32{1, 0, 0.5, -0.5, 2, 3}
	prefix := []float32{1, 0}

	// A shorter vector that happens to match the longer one's prefix must
	// not score as a perfect match.
	assert.Equal(t, 0.0, CosineSimilarity(long, prefix))
	assert.Equal(t, 0.0, CosineSimilarity(prefix, long))
}

func TestRankRejectsStoredVectorDimensionMismatch(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}, dim: 3}
	src := &fakeChunkSource{scoped: []models.ScopedChunk{
		scopedChunk("d1", "Doc", "t1", 0, "embedded under the old model", []float32{1, 0}),
	}}

	r := NewRetriever(emb, src, &fakeAccess{})

	ranked, err := r.Rank(context.Background(), "q", "t1", 5, "")
	require.Error(t, err)
	var confErr *ai.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, confErr.Reason, "re-ingest")
	assert.Nil(t, ranked)
}

func TestRankOrdersBySimilarityAndCapsTopK(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}, dim: 2}
	src := &fakeChunkSource{scoped: []models.ScopedChunk{
		scopedChunk("d1", "Doc", "t1", 0, "far", []float32{0, 1}),
		scopedChunk("d1", "Doc", "t1", 1, "close", []float32{1, 0.1}),
		scopedChunk("d1", "Doc", "t1", 2, "mid", []float32{1, 1}),
	}}

	r := NewRetriever(emb, src, &fakeAccess{})

	ranked, err := r.Rank(context.Background(), "q", "t1", 2, "")
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "close", ranked[0].Content)
	assert.Equal(t, "mid", ranked[1].Content)
	assert.GreaterOrEqual(t, ranked[0].Similarity, ranked[1].Similarity)
}

func TestRankStableTieBreakKeepsScanOrder(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}, dim: 2}
	same := []float32{1, 0}
	src := &fakeChunkSource{scoped: []models.ScopedChunk{
		scopedChunk("d1", "Doc", "t1", 0, "first", same),
		scopedChunk("d1", "Doc", "t1", 1, "second", same),
		scopedChunk("d1", "Doc", "t1", 2, "third", same),
	}}

	r := NewRetriever(emb, src, &fakeAccess{})

	ranked, err := r.Rank(context.Background(), "q", "t1", 3, "")
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{ranked[0].ChunkIndex, ranked[1].ChunkIndex, ranked[2].ChunkIndex})
}

func TestRankScopesToTenant(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}, dim: 2}
	src := &fakeChunkSource{scoped: []models.ScopedChunk{
		scopedChunk("d1", "Mine", "t1", 0, "mine", []float32{1, 0}),
		scopedChunk("d9", "Other", "t2", 0, "other tenant", []float32{1, 0}),
	}}

	r := NewRetriever(emb, src, &fakeAccess{})

	ranked, err := r.Rank(context.Background(), "q", "t1", 10, "")
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "d1", ranked[0].DocumentID)
}

func TestRankExcludesInaccessibleDocumentsBeforeScoring(t *testing.T) {
	// d2's chunk is a perfect match for the query; it must still never
	// appear for a user who cannot see d2.
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}, dim: 2}
	src := &fakeChunkSource{scoped: []models.ScopedChunk{
		scopedChunk("d1", "Public Doc", "t1", 0, "loosely related", []float32{0.2, 1}),
		scopedChunk("d2", "Finance Doc", "t1", 0, "exact match", []float32{1, 0}),
	}}
	acl := &fakeAccess{allowed: map[string]bool{"d1": true}}

	r := NewRetriever(emb, src, acl)

	ranked, err := r.Rank(context.Background(), "q", "t1", 5, "u1")
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "d1", ranked[0].DocumentID)
	assert.Equal(t, 1, acl.calls)
}

func TestRankWithoutUserSkipsAccessFilter(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}, dim: 2}
	src := &fakeChunkSource{scoped: []models.ScopedChunk{
		scopedChunk("d2", "Finance Doc", "t1", 0, "tagged content", []float32{1, 0}),
	}}
	acl := &fakeAccess{allowed: map[string]bool{}}

	r := NewRetriever(emb, src, acl)

	ranked, err := r.Rank(context.Background(), "q", "t1", 5, "")
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Zero(t, acl.calls)
}

func TestRankEmptyScopeIsNotAnError(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}, dim: 2}
	r := NewRetriever(emb, &fakeChunkSource{}, &fakeAccess{})

	ranked, err := r.Rank(context.Background(), "q", "t1", 5, "u1")
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRankLeavePolicyScenario(t *testing.T) {
	emb := &fakeEmbedder{
		vectors: map[string][]float32{
			"How many vacation days do I get?": {0.9, 0.1, 0},
		},
		dim: 3,
	}
	src := &fakeChunkSource{scoped: []models.ScopedChunk{
		scopedChunk("d1", "Leave Policy", "t1", 0, "Introduction and scope.", []float32{0, 1, 0}),
		scopedChunk("d1", "Leave Policy", "t1", 1, "Sick leave rules.", []float32{0, 0.5, 0.9}),
		scopedChunk("d1", "Leave Policy", "t1", 2, "Employees receive 25 vacation days.", []float32{0.95, 0.05, 0}),
	}}

	r := NewRetriever(emb, src, &fakeAccess{})

	ranked, err := r.Rank(context.Background(), "How many vacation days do I get?", "t1", 1, "")
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 2, ranked[0].ChunkIndex)
	assert.Equal(t, "Leave Policy", ranked[0].DocumentName)
	assert.Contains(t, ranked[0].Content, "25 vacation days")
}
