package llm

import (
	"context"

	"ai-travel-planner/internal/shared"
)

// Request is one structured-output call to a model provider.
type Request struct {
	SystemPrompt      string
	UserPrompt        string
	Schema            *Schema
	SchemaName        string
	SchemaDescription string
	// Model overrides the client's default model when set.
	Model       string
	Temperature float64
	MaxTokens   int
}

// Response contains the raw reply body and metadata like token usage.
type Response struct {
	Content string
	Usage   shared.TokenUsage
}

// StructuredGenerator asks a model for a reply constrained to a schema.
// Implementations issue exactly one provider call and map provider
// failures to *Error.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req Request) (Response, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
