package planner

import (
	"context"
	"strings"
	"time"

	"ai-travel-planner/internal/llm"
	"ai-travel-planner/internal/shared"
	"ai-travel-planner/internal/travelplan"
)

// AgentName labels planner executions in metrics.
const AgentName = "Planner"

// MinNoteWords is the minimum number of words a note needs before a plan
// is worth generating.
const MinNoteWords = 10

// ModelSettings configures every model call made by a Planner.
type ModelSettings struct {
	// Model overrides the generator's default when set.
	Model       string
	Temperature float64
	MaxTokens   int
	Language    string
}

// Planner turns note text into a validated travel plan.
type Planner struct {
	gen      llm.StructuredGenerator
	settings ModelSettings
}

// NewPlanner creates a new Planner instance.
func NewPlanner(gen llm.StructuredGenerator, settings ModelSettings) *Planner {
	return &Planner{gen: gen, settings: settings}
}

// Result is a generated plan with the metadata of the call that produced it.
type Result struct {
	Plan travelplan.Content
	Meta shared.AgentMeta
}

// ValidateNoteContent reports whether text holds at least MinNoteWords
// whitespace-separated words. GeneratePlan does not call it.
func ValidateNoteContent(text string) bool {
	return len(strings.Fields(text)) >= MinNoteWords
}

// GeneratePlan makes exactly one model call. Errors from the model client
// are returned as is; Meta is filled whenever the call reached the provider.
func (p *Planner) GeneratePlan(ctx context.Context, noteText string, opts *Options, preferences []string) (Result, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if err := o.Validate(); err != nil {
		return Result{}, llm.NewBadRequestError(err.Error())
	}

	prompts, err := BuildPrompts(noteText, o, preferences, p.settings.Language)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	plan, resp, err := llm.GenerateObject(ctx, p.gen, llm.Request{
		SystemPrompt:      prompts.System,
		UserPrompt:        prompts.User,
		Schema:            travelplan.Schema(),
		SchemaName:        travelplan.SchemaName,
		SchemaDescription: travelplan.SchemaDescription,
		Model:             p.settings.Model,
		Temperature:       p.settings.Temperature,
		MaxTokens:         p.settings.MaxTokens,
	}, travelplan.Validate)

	meta := shared.AgentMeta{
		AgentName: AgentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	// Failed calls carry no usage; keep the model that was asked for.
	if meta.Usage.Model == "" {
		meta.Usage.Model = p.settings.Model
	}
	if err != nil {
		return Result{Meta: meta}, err
	}

	return Result{Plan: plan, Meta: meta}, nil
}
