package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"ai-travel-planner/internal/shared"
)

// GenerateObject performs one structured call and applies the reply
// contract: the body must be JSON and must pass validate. validate should
// fail with a *shared.ValidationError so that its violations are kept.
func GenerateObject[T any](ctx context.Context, gen StructuredGenerator, req Request, validate func(candidate []byte) (T, error)) (T, Response, error) {
	var zero T

	resp, err := gen.GenerateStructured(ctx, req)
	if err != nil {
		return zero, resp, err
	}

	body := []byte(stripCodeFence(resp.Content))
	if !json.Valid(body) {
		return zero, resp, NewInvalidJSONResponseError(resp.Content, errors.New("response body is not valid JSON"))
	}

	value, err := validate(body)
	if err != nil {
		var verr *shared.ValidationError
		if errors.As(err, &verr) {
			return zero, resp, NewSchemaValidationError(resp.Content, verr.Violations)
		}
		return zero, resp, NewSchemaValidationError(resp.Content, []shared.Violation{{Reason: err.Error()}})
	}

	return value, resp, nil
}

// stripCodeFence removes a surrounding ```json fence some models add even in
// JSON mode.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimPrefix(t, "json")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
