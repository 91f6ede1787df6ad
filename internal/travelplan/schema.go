package travelplan

import "ai-travel-planner/internal/llm"

const (
	SchemaName        = "travel_plan"
	SchemaDescription = "Szczegółowy plan podróży dzień po dniu wygenerowany na podstawie notatki użytkownika."
)

// Schema declares the plan shape for the provider's structured-output
// contract. It mirrors Validate; the validator stays authoritative.
func Schema() *llm.Schema {
	one := 1

	str := func(desc string) *llm.Schema {
		return &llm.Schema{Type: llm.TypeString, Description: desc}
	}
	nonEmpty := func(desc string) *llm.Schema {
		return &llm.Schema{Type: llm.TypeString, Description: desc, MinLength: 1}
	}

	prices := make([]string, 0, len(PriceCategories))
	for _, p := range PriceCategories {
		prices = append(prices, string(p))
	}

	logistics := &llm.Schema{
		Type:        llm.TypeObject,
		Description: "Informacje logistyczne dotyczące aktywności.",
		Properties: map[string]*llm.Schema{
			"address":       str("Adres lokalizacji."),
			"mapLink":       {Type: llm.TypeString, Format: "uri", Description: "Link do mapy Google."},
			"estimatedTime": str("Szacowany czas trwania aktywności."),
		},
		PropertyOrder: []string{"address", "mapLink", "estimatedTime"},
	}

	activity := &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"name":          nonEmpty("Nazwa aktywności."),
			"description":   nonEmpty("Szczegółowy opis aktywności."),
			"priceCategory": {Type: llm.TypeString, Enum: prices, Description: "Kategoria cenowa aktywności."},
			"logistics":     logistics,
		},
		PropertyOrder: []string{"name", "description", "priceCategory", "logistics"},
		Required:      []string{"name", "description", "priceCategory", "logistics"},
	}

	slot := func(desc string) *llm.Schema {
		return &llm.Schema{Type: llm.TypeArray, Description: desc, Items: activity}
	}

	day := &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"day":       {Type: llm.TypeInteger, Minimum: &one, Description: "Numer dnia w planie podróży (zaczynając od 1)."},
			"date":      {Type: llm.TypeString, Pattern: `^\d{4}-\d{2}-\d{2}$`, Description: "Data w formacie YYYY-MM-DD, jeśli znana."},
			"dayOfWeek": str("Dzień tygodnia, jeśli data jest znana."),
			"title":     nonEmpty("Tytuł lub temat dnia (np. 'Zwiedzanie centrum')."),
			"activities": {
				Type:        llm.TypeObject,
				Description: "Aktywności pogrupowane według pory dnia.",
				Properties: map[string]*llm.Schema{
					"morning":   slot("Aktywności zaplanowane na poranek (opcjonalne)."),
					"afternoon": slot("Aktywności zaplanowane na popołudnie (opcjonalne)."),
					"evening":   slot("Aktywności zaplanowane na wieczór (opcjonalne)."),
				},
				PropertyOrder: []string{"morning", "afternoon", "evening"},
			},
		},
		PropertyOrder: []string{"day", "date", "dayOfWeek", "title", "activities"},
		Required:      []string{"day", "title", "activities"},
	}

	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"days":       {Type: llm.TypeArray, Items: day, MinItems: 1, Description: "Plan podróży dzień po dniu."},
			"disclaimer": str("Zastrzeżenie przypominające o weryfikacji informacji."),
		},
		PropertyOrder: []string{"days", "disclaimer"},
		Required:      []string{"days"},
	}
}
