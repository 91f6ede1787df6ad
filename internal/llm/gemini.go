package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-travel-planner/internal/config"
	"ai-travel-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiClient is a StructuredGenerator that owns a connection to be closed.
type GeminiClient interface {
	StructuredGenerator
	Closer
}

// geminiClient is a client for the Google Gemini API.
type geminiClient struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := cfg.LLMModel
	if model == "" || strings.Contains(model, "/") {
		// OpenRouter-style ids ("vendor/model") are meaningless to Gemini.
		model = defaultGeminiModel
	}
	return &geminiClient{client: client, defaultModel: model}, nil
}

// GenerateStructured sends the prompts to Gemini with a JSON response schema.
func (c *geminiClient) GenerateStructured(ctx context.Context, r Request) (Response, error) {
	name := r.Model
	if name == "" {
		name = c.defaultModel
	}

	model := c.client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(r.SystemPrompt)}}
	model.ResponseMIMEType = "application/json"
	if r.Schema != nil {
		model.ResponseSchema = r.Schema.GenaiSchema()
	}
	model.SetTemperature(float32(r.Temperature))
	if r.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(r.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(r.UserPrompt))
	if err != nil {
		return Response{}, mapGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Response{}, NewInvalidJSONResponseError("", fmt.Errorf("no content generated"))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	usage := shared.TokenUsage{Model: name}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return Response{Content: sb.String(), Usage: usage}, nil
}

// Close closes the underlying Gemini client.
func (c *geminiClient) Close() error {
	return c.client.Close()
}

// mapGeminiError translates googleapi status codes into the error taxonomy.
// Errors without an HTTP status (context cancellation, transport) pass through.
func mapGeminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		mapped := ErrorForStatus(gerr.Code, gerr.Message)
		mapped.Err = err
		return mapped
	}
	return fmt.Errorf("failed to generate content: %w", err)
}
