package rag

import (
	"context"
	"fmt"
	"strings"

	"kb-assist-platform/internal/ai"
	"kb-assist-platform/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	answerTopK   = 5
	historyDepth = 10

	// NoKnowledgeReply is returned without calling the completion
	// provider when retrieval finds nothing eligible.
	NoKnowledgeReply = "I don't have any information in the knowledge base to answer that yet. Please upload and approve documents first."

	// EmptyCompletionReply covers a well-formed provider response that
	// carries no text.
	EmptyCompletionReply = "I couldn't generate an answer right now. Please try again."
)

const groundingRules = `You are a knowledge base assistant. Answer the user's question using ONLY the context below.
If the context does not contain the answer, say you don't know - do not guess or use outside knowledge.
When relevant, mention which source document your answer comes from.`

const contextDivider = "\n\n---\n\n"

// Answerer assembles a grounded prompt from retrieved chunks plus recent
// conversation history and calls the completion provider.
type Answerer struct {
	retriever *Retriever
	completer ai.Completer
}

func NewAnswerer(retriever *Retriever, completer ai.Completer) *Answerer {
	return &Answerer{retriever: retriever, completer: completer}
}

// Generate answers query against the tenant's approved knowledge base.
// Provider errors propagate unhandled; the only local recovery is the
// empty-retrieval fallback, which short-circuits before any LLM call.
func (a *Answerer) Generate(ctx context.Context, query, tenantID string, history []models.ConversationTurn, userID string) (string, error) {
	tracer := otel.Tracer("knowledge-core")
	ctx, span := tracer.Start(ctx, "answerer.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.Int("answer.history_turns", len(history)),
	)

	ranked, err := a.retriever.Rank(ctx, query, tenantID, answerTopK, userID)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.Int("answer.context_chunks", len(ranked)))

	if len(ranked) == 0 {
		span.SetAttributes(attribute.Bool("answer.fallback", true))
		return NoKnowledgeReply, nil
	}

	messages := buildMessages(query, ranked, history)

	reply, err := a.completer.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		span.SetAttributes(attribute.Bool("answer.fallback", true))
		return EmptyCompletionReply, nil
	}
	return reply, nil
}

// buildMessages produces the ordered completion request: a system message
// carrying the grounding rules and the labeled context block, then the
// last historyDepth turns oldest-first, then the live query.
func buildMessages(query string, ranked []RankedChunk, history []models.ConversationTurn) []ai.Message {
	labeled := make([]string, 0, len(ranked))
	for i, chunk := range ranked {
		labeled = append(labeled, fmt.Sprintf("[Source %d: %s, section %d]\n%s",
			i+1, chunk.DocumentName, chunk.ChunkIndex, chunk.Content))
	}

	system := fmt.Sprintf("%s\n\nContext:\n%s", groundingRules,
		strings.Join(labeled, contextDivider))

	if len(history) > historyDepth {
		history = history[len(history)-historyDepth:]
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.MessageRoleSystem, Content: system})
	for _, turn := range history {
		role := ai.MessageRoleUser
		if turn.Role == models.TurnRoleAssistant {
			role = ai.MessageRoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, ai.Message{Role: ai.MessageRoleUser, Content: query})

	return messages
}
