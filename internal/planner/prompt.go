package planner

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"ai-travel-planner/internal/travelplan"
)

//go:embed system_prompt.md
var systemPrompt string

//go:embed user_prompt.md
var userPrompt string

// DefaultLanguage is the language requested for plan text.
const DefaultLanguage = "Polish"

var funcs = template.FuncMap{"join": strings.Join}

var (
	systemTmpl = template.Must(template.New("System").Funcs(funcs).Parse(systemPrompt))
	userTmpl   = template.Must(template.New("User").Parse(userPrompt))
)

// Prompts is the rendered system and user prompt pair.
type Prompts struct {
	System string
	User   string
}

type preferenceHint struct {
	Tag  string
	Hint string
}

// interestHints maps lowercased interest tags to kinds of places worth suggesting.
var interestHints = map[string]string{
	"biology":      "botanical gardens, aquariums, zoos and nature reserves",
	"biologia":     "botanical gardens, aquariums, zoos and nature reserves",
	"nature":       "national parks, nature reserves and scenic hiking trails",
	"przyroda":     "national parks, nature reserves and scenic hiking trails",
	"history":      "historical museums, castles, old towns and memorial sites",
	"historia":     "historical museums, castles, old towns and memorial sites",
	"art":          "art galleries, contemporary art centres and street art districts",
	"sztuka":       "art galleries, contemporary art centres and street art districts",
	"architecture": "landmark buildings, cathedrals and architecture walking routes",
	"architektura": "landmark buildings, cathedrals and architecture walking routes",
	"food":         "local markets, regional restaurants and food tours",
	"jedzenie":     "local markets, regional restaurants and food tours",
	"kuchnia":      "local markets, regional restaurants and food tours",
	"music":        "concert halls, live music venues and music museums",
	"muzyka":       "concert halls, live music venues and music museums",
	"science":      "science centres, planetariums and technical museums",
	"nauka":        "science centres, planetariums and technical museums",
	"photography":  "viewpoints, photogenic streets and golden-hour spots",
	"fotografia":   "viewpoints, photogenic streets and golden-hour spots",
	"sport":        "stadium tours, bike rentals and active outdoor sports",
	"kids":         "family attractions, playgrounds and interactive museums",
	"dzieci":       "family attractions, playgrounds and interactive museums",
	"nightlife":    "cocktail bars, clubs and evening walking tours",
	"shopping":     "local boutiques, markets and design shops",
	"zakupy":       "local boutiques, markets and design shops",
}

// BuildPrompts renders the prompts for one generation. The output depends
// only on its inputs. Preference tags are trimmed and de-duplicated.
func BuildPrompts(noteText string, opts Options, preferences []string, language string) (Prompts, error) {
	opts = opts.WithDefaults()
	if language == "" {
		language = DefaultLanguage
	}

	prices := make([]string, 0, len(travelplan.PriceCategories))
	for _, p := range travelplan.PriceCategories {
		prices = append(prices, string(p))
	}

	var hints []preferenceHint
	seen := make(map[string]struct{})
	for _, tag := range preferences {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		hints = append(hints, preferenceHint{Tag: tag, Hint: interestHints[key]})
	}

	var sys bytes.Buffer
	err := systemTmpl.Execute(&sys, struct {
		Style, Transport, Budget string
		PriceCategories          []string
		MapLinkExample           string
		Preferences              []preferenceHint
		Language                 string
	}{
		Style:           opts.Style.describe(),
		Transport:       opts.Transport.describe(),
		Budget:          opts.Budget.describe(),
		PriceCategories: prices,
		MapLinkExample:  MapLink("Zamek Królewski na Wawelu", "Kraków"),
		Preferences:     hints,
		Language:        language,
	})
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to render system prompt: %w", err)
	}

	var usr bytes.Buffer
	err = userTmpl.Execute(&usr, struct {
		Options Options
		Note    string
	}{Options: opts, Note: noteText})
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to render user prompt: %w", err)
	}

	return Prompts{System: sys.String(), User: usr.String()}, nil
}

// MapLink builds a map search link in the form the prompts ask models to use.
func MapLink(place, city string) string {
	query := strings.Join(strings.Fields(place+" "+city), "+")
	return "https://www.google.com/maps/search/?api=1&query=" + query
}
