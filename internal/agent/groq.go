package agent

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"medtriage/internal/observability"
	"medtriage/internal/triage"
)

const (
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "llama-3.1-8b-instant"

	chatTemperature    = 0.7
	chatMaxTokens      = 300
	analyzeTemperature = 0.3
	analyzeMaxTokens   = 500
)

var tracer = otel.Tracer("medtriage/agent")

// ChatCompleter is the slice of the OpenAI client the Groq reasoner needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GroqClient talks to Groq's OpenAI-compatible chat completions API.
type GroqClient struct {
	client ChatCompleter
	model  string
}

func NewGroqClient(apiKey, baseURL, model string) *GroqClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = GroqBaseURL
	}
	cfg.BaseURL = baseURL
	return NewGroqClientWith(openai.NewClientWithConfig(cfg), model)
}

func NewGroqClientWith(client ChatCompleter, model string) *GroqClient {
	if model == "" {
		model = DefaultGroqModel
	}
	return &GroqClient{client: client, model: model}
}

func (c *GroqClient) Chat(ctx context.Context, system string, prior []triage.ChatMessage, text string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(prior)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range prior {
		role := openai.ChatMessageRoleUser
		if m.Role == triage.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	return c.complete(ctx, "chat", openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
}

func (c *GroqClient) Analyze(ctx context.Context, patient triage.PatientContext) (string, error) {
	return c.complete(ctx, "analyze", openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(patient)},
		},
		Temperature: analyzeTemperature,
		MaxTokens:   analyzeMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

func (c *GroqClient) complete(ctx context.Context, op string, req openai.ChatCompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "groq."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", c.model), attribute.Int("llm.messages", len(req.Messages))),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	observability.RecordRemoteCall("groq", op, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", classifyError("groq", err)
	}

	if len(resp.Choices) == 0 {
		return "", classifyError("groq", errors.New("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}
