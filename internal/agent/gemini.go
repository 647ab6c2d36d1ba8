package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"medtriage/internal/observability"
	"medtriage/internal/triage"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// ContentGenerator is the slice of the Gen AI client the Gemini reasoner needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	models ContentGenerator
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, baseURL, model string) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewGeminiClientWith(client.Models, model), nil
}

func NewGeminiClientWith(models ContentGenerator, model string) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{models: models, model: model}
}

func (c *GeminiClient) Chat(ctx context.Context, system string, prior []triage.ChatMessage, text string) (string, error) {
	contents := make([]*genai.Content, 0, len(prior)+1)
	for _, m := range prior {
		var role genai.Role = genai.RoleUser
		if m.Role == triage.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))

	return c.generate(ctx, "chat", contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(chatTemperature)),
		MaxOutputTokens:   chatMaxTokens,
	})
}

func (c *GeminiClient) Analyze(ctx context.Context, patient triage.PatientContext) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(analysisPrompt(patient), genai.RoleUser)}
	return c.generate(ctx, "analyze", contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisSystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(analyzeTemperature)),
		MaxOutputTokens:   analyzeMaxTokens,
		ResponseMIMEType:  "application/json",
	})
}

func (c *GeminiClient) generate(ctx context.Context, op string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	ctx, span := tracer.Start(ctx, "gemini."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", c.model), attribute.Int("llm.messages", len(contents))),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	observability.RecordRemoteCall("gemini", op, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return "", classifyError("gemini", err)
	}
	if resp == nil {
		return "", classifyError("gemini", errors.New("empty response"))
	}
	return resp.Text(), nil
}
