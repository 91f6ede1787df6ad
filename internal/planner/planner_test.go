package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-travel-planner/internal/llm"
	"ai-travel-planner/internal/shared"
	"ai-travel-planner/internal/travelplan"
)

const validPlanJSON = `{
	"days": [{
		"day": 1,
		"title": "Stare Miasto",
		"activities": {
			"morning": [{
				"name": "Wawel",
				"description": "Zwiedzanie zamku.",
				"priceCategory": "moderate",
				"logistics": {"mapLink": "https://www.google.com/maps/search/?api=1&query=Wawel+Kraków"}
			}]
		}
	}]
}`

type MockStructuredGenerator struct {
	Content  string
	Err      error
	Requests []llm.Request
}

func (m *MockStructuredGenerator) GenerateStructured(ctx context.Context, req llm.Request) (llm.Response, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return llm.Response{}, m.Err
	}
	return llm.Response{
		Content: m.Content,
		Usage:   shared.TokenUsage{PromptTokens: 900, CompletionTokens: 400, TotalTokens: 1300, Model: "openai/gpt-4o-mini"},
	}, nil
}

func TestGeneratePlan(t *testing.T) {
	gen := &MockStructuredGenerator{Content: validPlanJSON}
	p := NewPlanner(gen, ModelSettings{Model: "openai/gpt-4o-mini", Temperature: 0.4, MaxTokens: 3000})

	res, err := p.GeneratePlan(context.Background(), "Trzy dni w Krakowie, chcę zobaczyć Wawel i zjeść pierogi.", nil, []string{"historia"})
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}

	if len(gen.Requests) != 1 {
		t.Fatalf("Expected exactly 1 model call, got %d", len(gen.Requests))
	}
	req := gen.Requests[0]
	if req.Model != "openai/gpt-4o-mini" || req.Temperature != 0.4 || req.MaxTokens != 3000 {
		t.Errorf("Model settings not passed through: %+v", req)
	}
	if req.SchemaName != travelplan.SchemaName || req.Schema == nil {
		t.Errorf("Expected plan schema on request, got name %q", req.SchemaName)
	}
	if !strings.Contains(req.UserPrompt, "Wawel") {
		t.Errorf("Expected note text in user prompt")
	}
	if !strings.Contains(req.SystemPrompt, "historical museums") {
		t.Errorf("Expected preference hint in system prompt")
	}

	if len(res.Plan.Days) != 1 {
		t.Fatalf("Expected 1 day, got %d", len(res.Plan.Days))
	}
	if res.Plan.Disclaimer != travelplan.DefaultDisclaimer {
		t.Errorf("Expected default disclaimer, got %q", res.Plan.Disclaimer)
	}
	if res.Meta.AgentName != AgentName {
		t.Errorf("Expected agent name %q, got %q", AgentName, res.Meta.AgentName)
	}
	if res.Meta.Usage.TotalTokens != 1300 {
		t.Errorf("Expected usage to be recorded, got %+v", res.Meta.Usage)
	}
}

func TestGeneratePlanDefaultsOptions(t *testing.T) {
	gen := &MockStructuredGenerator{Content: validPlanJSON}
	p := NewPlanner(gen, ModelSettings{})

	_, err := p.GeneratePlan(context.Background(), "notatka", &Options{Transport: TransportWalking}, nil)
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}

	user := gen.Requests[0].UserPrompt
	if !strings.Contains(user, "style leisure, transport walking, budget standard") {
		t.Errorf("Expected defaulted options in user prompt, got:\n%s", user)
	}
}

func TestGeneratePlanPropagatesErrorsUnchanged(t *testing.T) {
	providerErr := llm.NewRateLimitError()
	gen := &MockStructuredGenerator{Err: providerErr}
	p := NewPlanner(gen, ModelSettings{Model: "openai/gpt-4o-mini"})

	res, err := p.GeneratePlan(context.Background(), "notatka", nil, nil)
	if err != providerErr {
		t.Fatalf("Expected provider error to be returned as is, got %v", err)
	}
	if len(gen.Requests) != 1 {
		t.Errorf("Expected no retry, got %d calls", len(gen.Requests))
	}
	if res.Meta.AgentName != AgentName || res.Meta.Usage.Model != "openai/gpt-4o-mini" {
		t.Errorf("Expected meta naming the requested model on failure, got %+v", res.Meta)
	}
}

func TestGeneratePlanSchemaFailure(t *testing.T) {
	gen := &MockStructuredGenerator{Content: `{"days": []}`}
	p := NewPlanner(gen, ModelSettings{})

	res, err := p.GeneratePlan(context.Background(), "notatka", nil, nil)
	if !errors.Is(err, llm.ErrSchemaValidation) {
		t.Fatalf("Expected schema validation error, got %v", err)
	}

	var llmErr *llm.Error
	if !errors.As(err, &llmErr) {
		t.Fatalf("Expected *llm.Error")
	}
	found := false
	for _, v := range llmErr.Violations {
		if v.Path == "days" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a violation on days, got %v", llmErr.Violations)
	}
	if res.Meta.Usage.TotalTokens == 0 {
		t.Errorf("Expected meta to be kept on failure")
	}
}

func TestGeneratePlanRejectsUnknownOptions(t *testing.T) {
	gen := &MockStructuredGenerator{Content: validPlanJSON}
	p := NewPlanner(gen, ModelSettings{})

	_, err := p.GeneratePlan(context.Background(), "notatka", &Options{Style: "extreme"}, nil)
	if !errors.Is(err, llm.ErrBadRequest) {
		t.Fatalf("Expected bad request error, got %v", err)
	}
	if len(gen.Requests) != 0 {
		t.Errorf("Expected no model call for invalid options")
	}
}

func TestValidateNoteContent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"exactly ten words", "jeden dwa trzy cztery pięć sześć siedem osiem dziewięć dziesięć", true},
		{"nine words", "jeden dwa trzy cztery pięć sześć siedem osiem dziewięć", false},
		{"irregular whitespace", "  jeden\tdwa\n\ntrzy  cztery pięć \r\n sześć siedem osiem dziewięć   dziesięć  ", true},
		{"empty", "", false},
		{"whitespace only", " \t\n ", false},
		{"many words", strings.Repeat("słowo ", 50), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateNoteContent(tc.text); got != tc.want {
				t.Errorf("ValidateNoteContent(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
