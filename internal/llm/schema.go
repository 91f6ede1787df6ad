package llm

import (
	"encoding/json"

	"github.com/google/generative-ai-go/genai"
)

// SchemaType is a JSON Schema primitive type.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral description of the structured reply a model
// must produce. It renders as JSON Schema for OpenAI-compatible providers and
// converts to genai.Schema for Gemini.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	// PropertyOrder keeps rendering deterministic; properties missing from it
	// are dropped.
	PropertyOrder []string
	Required      []string
	Items         *Schema
	Enum          []string
	Format        string
	Pattern       string
	MinItems      int
	MinLength     int
	Minimum       *int
}

// MarshalJSON renders s as a JSON Schema document.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.jsonSchema())
}

func (s *Schema) jsonSchema() map[string]any {
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if s.Pattern != "" {
		out["pattern"] = s.Pattern
	}
	if s.MinLength > 0 {
		out["minLength"] = s.MinLength
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Items != nil {
		out["items"] = s.Items.jsonSchema()
	}
	if s.MinItems > 0 {
		out["minItems"] = s.MinItems
	}
	if s.Type == TypeObject {
		props := make(map[string]any, len(s.PropertyOrder))
		for _, name := range s.PropertyOrder {
			if p, ok := s.Properties[name]; ok {
				props[name] = p.jsonSchema()
			}
		}
		out["properties"] = props
		if len(s.Required) > 0 {
			out["required"] = s.Required
		}
	}
	return out
}

// GenaiSchema converts s for the Gemini response schema. Gemini accepts a
// subset of JSON Schema; pattern, minimum and minItems constraints are left
// to the validator that checks every reply.
func (s *Schema) GenaiSchema() *genai.Schema {
	g := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	if len(s.Enum) > 0 {
		g.Format = "enum"
	}
	if s.Items != nil {
		g.Items = s.Items.GenaiSchema()
	}
	if len(s.Properties) > 0 {
		g.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, name := range s.PropertyOrder {
			if p, ok := s.Properties[name]; ok {
				g.Properties[name] = p.GenaiSchema()
			}
		}
	}
	return g
}

func genaiType(t SchemaType) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
