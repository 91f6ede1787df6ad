package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ai-travel-planner/internal/config"
	"ai-travel-planner/internal/shared"
)

const openRouterChatPath = "/chat/completions"

// openRouterClient is a client for the OpenRouter chat/completions API.
type openRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	siteURL      string
	siteName     string
	httpClient   *http.Client
}

// NewOpenRouterClient creates a new OpenRouter API client. The client sets no
// timeout of its own; callers bound each call through the context.
func NewOpenRouterClient(cfg *config.Config) StructuredGenerator {
	return &openRouterClient{
		apiKey:       cfg.OpenRouterAPIKey,
		baseURL:      strings.TrimRight(cfg.OpenRouterBaseURL, "/"),
		defaultModel: cfg.LLMModel,
		siteURL:      cfg.OpenRouterSiteURL,
		siteName:     cfg.OpenRouterSiteName,
		httpClient:   &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Strict      bool    `json:"strict"`
	Schema      *Schema `json:"schema"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateStructured sends one chat/completions request with a json_schema
// response format and returns the message content as received.
func (c *openRouterClient) GenerateStructured(ctx context.Context, r Request) (Response, error) {
	model := r.Model
	if model == "" {
		model = c.defaultModel
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: r.SystemPrompt},
			{Role: "user", Content: r.UserPrompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    r.Temperature,
		MaxTokens:      r.MaxTokens,
	}
	if r.Schema != nil {
		body.ResponseFormat = responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:        r.SchemaName,
				Description: r.SchemaDescription,
				Schema:      r.Schema,
			},
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+openRouterChatPath, bytes.NewReader(jsonBody))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Response{}, ErrorForStatus(resp.StatusCode, providerErrorDetails(bodyBytes))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return Response{}, NewInvalidJSONResponseError(string(raw), err)
	}

	if len(chatResp.Choices) == 0 {
		return Response{}, NewInvalidJSONResponseError(string(raw), fmt.Errorf("no choices in response"))
	}

	usedModel := chatResp.Model
	if usedModel == "" {
		usedModel = model
	}

	return Response{
		Content: chatResp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
			Model:            usedModel,
		},
	}, nil
}

// providerErrorDetails extracts error.message from an OpenAI-style error
// body, falling back to the trimmed body text.
func providerErrorDetails(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}
