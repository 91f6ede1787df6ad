package planner

import (
	"fmt"

	"ai-travel-planner/internal/shared"
)

type Style string

const (
	StyleAdventure Style = "adventure"
	StyleLeisure   Style = "leisure"
)

type Transport string

const (
	TransportCar     Transport = "car"
	TransportPublic  Transport = "public"
	TransportWalking Transport = "walking"
)

type Budget string

const (
	BudgetEconomy  Budget = "economy"
	BudgetStandard Budget = "standard"
	BudgetLuxury   Budget = "luxury"
)

// Options personalize a generated plan. Zero fields take the defaults
// leisure, public and standard.
type Options struct {
	Style     Style     `json:"style,omitempty"`
	Transport Transport `json:"transport,omitempty"`
	Budget    Budget    `json:"budget,omitempty"`
}

// DefaultOptions returns the options used when a caller sets none.
func DefaultOptions() Options {
	return Options{Style: StyleLeisure, Transport: TransportPublic, Budget: BudgetStandard}
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Style == "" {
		o.Style = d.Style
	}
	if o.Transport == "" {
		o.Transport = d.Transport
	}
	if o.Budget == "" {
		o.Budget = d.Budget
	}
	return o
}

// Validate rejects values outside the closed sets. Unset fields are valid.
func (o Options) Validate() error {
	var violations []shared.Violation
	switch o.Style {
	case "", StyleAdventure, StyleLeisure:
	default:
		violations = append(violations, shared.Violation{Path: "options.style", Reason: fmt.Sprintf("must be one of adventure, leisure; got %q", o.Style)})
	}
	switch o.Transport {
	case "", TransportCar, TransportPublic, TransportWalking:
	default:
		violations = append(violations, shared.Violation{Path: "options.transport", Reason: fmt.Sprintf("must be one of car, public, walking; got %q", o.Transport)})
	}
	switch o.Budget {
	case "", BudgetEconomy, BudgetStandard, BudgetLuxury:
	default:
		violations = append(violations, shared.Violation{Path: "options.budget", Reason: fmt.Sprintf("must be one of economy, standard, luxury; got %q", o.Budget)})
	}
	if len(violations) > 0 {
		return &shared.ValidationError{Violations: violations}
	}
	return nil
}

func (s Style) describe() string {
	if s == StyleAdventure {
		return "adventurous and active: dense days, outdoor activities, lesser-known spots and physical effort are welcome"
	}
	return "relaxed and leisurely: a comfortable pace, fewer activities per day, time for cafés, rest and slow sightseeing"
}

func (t Transport) describe() string {
	switch t {
	case TransportCar:
		return "travelling by car: places outside the centre and day trips are fine, mention parking where relevant"
	case TransportWalking:
		return "travelling on foot: keep each day within walking distance and group nearby places together"
	default:
		return "travelling by public transport: prefer places reachable by metro, tram, bus or train and mention the line or stop when useful"
	}
}

func (b Budget) describe() string {
	switch b {
	case BudgetEconomy:
		return "economy: favour free and budget activities, inexpensive local food and free entry days"
	case BudgetLuxury:
		return "luxury: premium experiences, fine dining and guided or private tours are welcome"
	default:
		return "standard: a balanced mix of free, budget and moderately priced activities with an occasional splurge"
	}
}
