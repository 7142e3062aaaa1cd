package ai

import (
	"context"
	"fmt"
	"time"

	"kb-assist-platform/internal/config"
	"kb-assist-platform/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

const (
	MessageRoleSystem    = "system"
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Message is one entry in an ordered chat-completion request.
type Message struct {
	Role    string
	Content string
}

// Completer generates text from an ordered message list.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// GeminiCompleter calls a Gemini generative model behind a circuit breaker
// and a request-rate limiter.
type GeminiCompleter struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewGeminiCompleter(ctx context.Context, cfg *config.Config) (*GeminiCompleter, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, &ConfigurationError{Reason: "missing GEMINI_API_KEY for completions"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name,
				"from", from.String(), "to", to.String())
		},
	})

	// Free-tier pacing: 10 requests per minute with a small burst.
	limiter := rate.NewLimiter(rate.Every(6*time.Second), 2)

	return &GeminiCompleter{
		client:  client,
		model:   cfg.CompletionModel,
		breaker: breaker,
		limiter: limiter,
	}, nil
}

// Complete sends the message list to the model. Leading system messages
// become the system instruction, the final message is the live user turn
// and everything in between is chat history. An empty reply is returned
// as-is; the caller decides on fallback text.
func (g *GeminiCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", g.model),
		attribute.Int("gemini.messages", len(messages)),
	)

	if len(messages) == 0 {
		return "", &ExternalServiceError{Provider: "gemini", Op: "complete",
			Err: fmt.Errorf("empty message list")}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		model := g.client.GenerativeModel(g.model)
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(2048)

		system, history, last := splitMessages(messages)
		if system != "" {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(system)},
			}
		}

		session := model.StartChat()
		session.History = toGenaiHistory(history)

		resp, err := session.SendMessage(ctx, genai.Text(last.Content))
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", &ExternalServiceError{Provider: "gemini", Op: "complete", Err: err}
	}

	text := extractText(result.(*genai.GenerateContentResponse))
	span.SetAttributes(attribute.Int("gemini.response_chars", len(text)))
	return text, nil
}

// splitMessages separates leading system messages, the trailing live turn
// and the history between them.
func splitMessages(messages []Message) (system string, history []Message, last Message) {
	i := 0
	for ; i < len(messages) && messages[i].Role == MessageRoleSystem; i++ {
		if system != "" {
			system += "\n\n"
		}
		system += messages[i].Content
	}

	rest := messages[i:]
	if len(rest) == 0 {
		return system, nil, Message{Role: MessageRoleUser}
	}
	return system, rest[:len(rest)-1], rest[len(rest)-1]
}

func toGenaiHistory(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == MessageRoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return contents
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	text := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
		break
	}
	return text
}

func (g *GeminiCompleter) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
