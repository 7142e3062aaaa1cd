package ai

import (
	"context"
	"errors"
	"testing"

	"kb-assist-platform/internal/config"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiCompleterWithoutKey(t *testing.T) {
	cfg := &config.Config{CompletionModel: "gemini-2.0-flash"}

	completer, err := NewGeminiCompleter(context.Background(), cfg)
	assert.Nil(t, completer)

	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Contains(t, confErr.Reason, "GEMINI_API_KEY")
}

func TestSplitMessages(t *testing.T) {
	system, history, last := splitMessages([]Message{
		{Role: MessageRoleSystem, Content: "rules"},
		{Role: MessageRoleUser, Content: "first"},
		{Role: MessageRoleAssistant, Content: "reply"},
		{Role: MessageRoleUser, Content: "second"},
	})

	assert.Equal(t, "rules", system)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "reply", history[1].Content)
	assert.Equal(t, "second", last.Content)
}

func TestSplitMessagesJoinsSystemBlocks(t *testing.T) {
	system, history, last := splitMessages([]Message{
		{Role: MessageRoleSystem, Content: "rules"},
		{Role: MessageRoleSystem, Content: "context"},
		{Role: MessageRoleUser, Content: "question"},
	})

	assert.Equal(t, "rules\n\ncontext", system)
	assert.Empty(t, history)
	assert.Equal(t, "question", last.Content)
}

func TestSplitMessagesSystemOnly(t *testing.T) {
	system, history, last := splitMessages([]Message{
		{Role: MessageRoleSystem, Content: "rules"},
	})

	assert.Equal(t, "rules", system)
	assert.Empty(t, history)
	assert.Equal(t, MessageRoleUser, last.Role)
	assert.Empty(t, last.Content)
}

func TestToGenaiHistoryMapsRoles(t *testing.T) {
	contents := toGenaiHistory([]Message{
		{Role: MessageRoleUser, Content: "hello"},
		{Role: MessageRoleAssistant, Content: "hi there"},
	})

	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, genai.Text("hi there"), contents[1].Parts[0])
}

func TestExtractText(t *testing.T) {
	assert.Empty(t, extractText(nil))
	assert.Empty(t, extractText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Text("part one "),
				genai.Text("part two"),
			}}},
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Text("second candidate is ignored"),
			}}},
		},
	}
	assert.Equal(t, "part one part two", extractText(resp))
}

func TestExternalServiceErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ExternalServiceError{Provider: "gemini", Op: "complete", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "gemini complete failed")
}
