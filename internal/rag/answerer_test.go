package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"kb-assist-platform/internal/ai"
	"kb-assist-platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply    string
	err      error
	calls    int
	received []ai.Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []ai.Message) (string, error) {
	f.calls++
	f.received = messages
	return f.reply, f.err
}

func answererWith(t *testing.T, scoped []models.ScopedChunk, completer ai.Completer) *Answerer {
	t.Helper()
	emb := &fakeEmbedder{vectors: map[string][]float32{}, dim: 3}
	retriever := NewRetriever(emb, &fakeChunkSource{scoped: scoped}, &fakeAccess{})
	return NewAnswerer(retriever, completer)
}

func TestGenerateEmptyRetrievalSkipsCompletion(t *testing.T) {
	completer := &fakeCompleter{reply: "should never be used"}
	a := answererWith(t, nil, completer)

	reply, err := a.Generate(context.Background(), "anything", "t1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, NoKnowledgeReply, reply)
	assert.Zero(t, completer.calls)
}

func TestGenerateEmptyCompletionFallsBack(t *testing.T) {
	completer := &fakeCompleter{reply: "  \n "}
	a := answererWith(t, []models.ScopedChunk{
		scopedChunk("d1", "Handbook", "t1", 0, "Some policy text.", []float32{1, 0, 0}),
	}, completer)

	reply, err := a.Generate(context.Background(), "question", "t1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, EmptyCompletionReply, reply)
	assert.Equal(t, 1, completer.calls)
}

func TestGeneratePassesThroughCompletion(t *testing.T) {
	completer := &fakeCompleter{reply: "You get 25 days."}
	a := answererWith(t, []models.ScopedChunk{
		scopedChunk("d1", "Handbook", "t1", 0, "Employees receive 25 vacation days.", []float32{1, 0, 0}),
	}, completer)

	reply, err := a.Generate(context.Background(), "question", "t1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "You get 25 days.", reply)
}

func TestBuildMessagesLayout(t *testing.T) {
	ranked := []RankedChunk{
		{Content: "Alpha content.", DocumentName: "Doc A", ChunkIndex: 0},
		{Content: "Beta content.", DocumentName: "Doc B", ChunkIndex: 3},
	}
	history := []models.ConversationTurn{
		{Role: models.TurnRoleUser, Content: "earlier question"},
		{Role: models.TurnRoleAssistant, Content: "earlier answer"},
	}

	messages := buildMessages("live question", ranked, history)
	require.Len(t, messages, 4)

	system := messages[0]
	assert.Equal(t, ai.MessageRoleSystem, system.Role)
	assert.Contains(t, system.Content, "ONLY the context below")
	assert.Contains(t, system.Content, "[Source 1: Doc A, section 0]\nAlpha content.")
	assert.Contains(t, system.Content, "[Source 2: Doc B, section 3]\nBeta content.")
	assert.Contains(t, system.Content, contextDivider)
	// Grounding rules precede the context block.
	assert.Less(t,
		strings.Index(system.Content, "knowledge base assistant"),
		strings.Index(system.Content, "[Source 1"))

	assert.Equal(t, ai.MessageRoleUser, messages[1].Role)
	assert.Equal(t, "earlier question", messages[1].Content)
	assert.Equal(t, ai.MessageRoleAssistant, messages[2].Role)
	assert.Equal(t, "earlier answer", messages[2].Content)
	assert.Equal(t, ai.MessageRoleUser, messages[3].Role)
	assert.Equal(t, "live question", messages[3].Content)
}

func TestBuildMessagesTrimsHistoryToLastTen(t *testing.T) {
	history := make([]models.ConversationTurn, 0, 16)
	for i := 0; i < 16; i++ {
		history = append(history, models.ConversationTurn{
			Role:    models.TurnRoleUser,
			Content: fmt.Sprintf("turn %d", i),
		})
	}

	messages := buildMessages("q", []RankedChunk{{Content: "c", DocumentName: "D"}}, history)

	// system + 10 history turns + live query
	require.Len(t, messages, 12)
	assert.Equal(t, "turn 6", messages[1].Content)
	assert.Equal(t, "turn 15", messages[10].Content)
	assert.Equal(t, "q", messages[11].Content)
}
