package travelplan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/url"
	"regexp"

	"ai-travel-planner/internal/shared"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate decodes candidate and checks it against the plan shape. All
// violations are collected; the first one does not stop the walk. Unknown
// keys are dropped and a missing disclaimer gets DefaultDisclaimer.
func Validate(candidate []byte) (Content, error) {
	dec := json.NewDecoder(bytes.NewReader(candidate))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Content{}, &shared.ValidationError{Violations: []shared.Violation{{Reason: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	if _, err := dec.Token(); err != io.EOF {
		return Content{}, &shared.ValidationError{Violations: []shared.Violation{{Reason: "invalid JSON: trailing data after document"}}}
	}

	return ValidateValue(v)
}

// ValidateValue checks an already decoded JSON value (maps, slices, strings,
// json.Number or float64).
func ValidateValue(v any) (Content, error) {
	c := &checker{}
	content := c.content(v)
	if len(c.violations) > 0 {
		return Content{}, &shared.ValidationError{Violations: c.violations}
	}
	return content, nil
}

// Validate re-checks an in-memory plan, e.g. one read back from storage.
func (c Content) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	_, err = Validate(data)
	return err
}

type checker struct {
	violations []shared.Violation
}

func (c *checker) add(path, reason string) {
	c.violations = append(c.violations, shared.Violation{Path: path, Reason: reason})
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (c *checker) object(path string, v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		c.add(path, fmt.Sprintf("expected object, got %s", kindOf(v)))
	}
	return obj, ok
}

func (c *checker) content(v any) Content {
	obj, ok := c.object("", v)
	if !ok {
		return Content{}
	}

	var out Content
	raw, present := obj["days"]
	switch days := raw.(type) {
	case []any:
		if len(days) == 0 {
			c.add("days", "must contain at least 1 day")
		}
		for i, d := range days {
			out.Days = append(out.Days, c.day(fmt.Sprintf("days[%d]", i), d))
		}
	default:
		if !present {
			c.add("days", "is required")
		} else {
			c.add("days", fmt.Sprintf("expected array, got %s", kindOf(raw)))
		}
	}

	out.Disclaimer = DefaultDisclaimer
	if raw, present := obj["disclaimer"]; present {
		if s, ok := raw.(string); ok {
			out.Disclaimer = s
		} else {
			c.add("disclaimer", fmt.Sprintf("expected string, got %s", kindOf(raw)))
		}
	}
	return out
}

func (c *checker) day(path string, v any) Day {
	obj, ok := c.object(path, v)
	if !ok {
		return Day{}
	}

	out := Day{
		Day:       c.positiveInt(join(path, "day"), obj),
		Date:      c.optionalString(path, obj, "date"),
		DayOfWeek: c.optionalString(path, obj, "dayOfWeek"),
		Title:     c.requiredString(path, obj, "title"),
	}
	if _, present := obj["date"]; present && !datePattern.MatchString(out.Date) {
		c.add(join(path, "date"), "must match YYYY-MM-DD")
	}

	actPath := join(path, "activities")
	raw, present := obj["activities"]
	if !present {
		c.add(actPath, "is required")
		return out
	}
	acts, ok := c.object(actPath, raw)
	if !ok {
		return out
	}
	out.Activities = DayActivities{
		Morning:   c.slot(actPath, acts, "morning"),
		Afternoon: c.slot(actPath, acts, "afternoon"),
		Evening:   c.slot(actPath, acts, "evening"),
	}
	return out
}

// slot returns nil for absent and empty slots so that a validated plan
// serializes and re-validates to the same value.
func (c *checker) slot(parent string, obj map[string]any, key string) []Activity {
	raw, present := obj[key]
	if !present {
		return nil
	}
	path := join(parent, key)
	items, ok := raw.([]any)
	if !ok {
		c.add(path, fmt.Sprintf("expected array, got %s", kindOf(raw)))
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	out := make([]Activity, 0, len(items))
	for i, item := range items {
		out = append(out, c.activity(fmt.Sprintf("%s[%d]", path, i), item))
	}
	return out
}

func (c *checker) activity(path string, v any) Activity {
	obj, ok := c.object(path, v)
	if !ok {
		return Activity{}
	}

	out := Activity{
		Name:        c.requiredString(path, obj, "name"),
		Description: c.requiredString(path, obj, "description"),
	}

	pcPath := join(path, "priceCategory")
	switch raw := obj["priceCategory"].(type) {
	case string:
		if pc := PriceCategory(raw); pc.Valid() {
			out.PriceCategory = pc
		} else {
			c.add(pcPath, fmt.Sprintf("must be one of free, budget, moderate, expensive; got %q", raw))
		}
	case nil:
		if _, present := obj["priceCategory"]; present {
			c.add(pcPath, "expected string, got null")
		} else {
			c.add(pcPath, "is required")
		}
	default:
		c.add(pcPath, fmt.Sprintf("expected string, got %s", kindOf(raw)))
	}

	logPath := join(path, "logistics")
	raw, present := obj["logistics"]
	if !present {
		c.add(logPath, "is required")
		return out
	}
	logistics, ok := c.object(logPath, raw)
	if !ok {
		return out
	}
	out.Logistics = Logistics{
		Address:       c.optionalString(logPath, logistics, "address"),
		MapLink:       c.optionalString(logPath, logistics, "mapLink"),
		EstimatedTime: c.optionalString(logPath, logistics, "estimatedTime"),
	}
	if link, isString := logistics["mapLink"].(string); isString && !isAbsoluteURL(link) {
		c.add(join(logPath, "mapLink"), "must be a valid URL")
	}
	return out
}

func (c *checker) requiredString(parent string, obj map[string]any, key string) string {
	path := join(parent, key)
	raw, present := obj[key]
	if !present {
		c.add(path, "is required")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		c.add(path, fmt.Sprintf("expected string, got %s", kindOf(raw)))
		return ""
	}
	if s == "" {
		c.add(path, "must not be empty")
	}
	return s
}

func (c *checker) optionalString(parent string, obj map[string]any, key string) string {
	raw, present := obj[key]
	if !present {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		c.add(join(parent, key), fmt.Sprintf("expected string, got %s", kindOf(raw)))
		return ""
	}
	return s
}

func (c *checker) positiveInt(path string, obj map[string]any) int {
	raw, present := obj["day"]
	if !present {
		c.add(path, "is required")
		return 0
	}

	var f float64
	switch n := raw.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			c.add(path, "expected integer")
			return 0
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		c.add(path, fmt.Sprintf("expected integer, got %s", kindOf(raw)))
		return 0
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) {
		c.add(path, "expected integer")
		return 0
	}
	if f <= 0 {
		c.add(path, "must be a positive integer")
		return 0
	}
	if f > math.MaxInt32 {
		c.add(path, "is out of range")
		return 0
	}
	return int(f)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
