package travelplan

import "fmt"

// DefaultDisclaimer is injected when a generated plan carries none.
const DefaultDisclaimer = "Zaleca się weryfikację godzin otwarcia i dostępności atrakcji przed wizytą."

// PriceCategory is the closed set of activity price levels.
type PriceCategory string

const (
	PriceFree      PriceCategory = "free"
	PriceBudget    PriceCategory = "budget"
	PriceModerate  PriceCategory = "moderate"
	PriceExpensive PriceCategory = "expensive"
)

// PriceCategories lists the accepted values in display order.
var PriceCategories = []PriceCategory{PriceFree, PriceBudget, PriceModerate, PriceExpensive}

// Valid reports whether p is one of the accepted values. Matching is exact.
func (p PriceCategory) Valid() bool {
	for _, c := range PriceCategories {
		if p == c {
			return true
		}
	}
	return false
}

// Label returns the Polish display label.
func (p PriceCategory) Label() string {
	switch p {
	case PriceFree:
		return "Bezpłatne"
	case PriceBudget:
		return "Ekonomiczne"
	case PriceModerate:
		return "Umiarkowane"
	case PriceExpensive:
		return "Drogie"
	default:
		return string(p)
	}
}

// Content is a validated multi-day itinerary.
type Content struct {
	Days       []Day  `json:"days"`
	Disclaimer string `json:"disclaimer"`
}

// Day is one day of the itinerary. Date is only checked against YYYY-MM-DD
// and DayOfWeek is free-form.
type Day struct {
	Day        int           `json:"day"`
	Date       string        `json:"date,omitempty"`
	DayOfWeek  string        `json:"dayOfWeek,omitempty"`
	Title      string        `json:"title"`
	Activities DayActivities `json:"activities"`
}

// Header renders "DayOfWeek, Date" when both are known, else "Dzień N".
func (d Day) Header() string {
	if d.Date != "" && d.DayOfWeek != "" {
		return fmt.Sprintf("%s, %s", d.DayOfWeek, d.Date)
	}
	return fmt.Sprintf("Dzień %d", d.Day)
}

// DayActivities groups activities by time of day. Every slot may be empty.
type DayActivities struct {
	Morning   []Activity `json:"morning,omitempty"`
	Afternoon []Activity `json:"afternoon,omitempty"`
	Evening   []Activity `json:"evening,omitempty"`
}

// Slot pairs a time-of-day name with its activities.
type Slot struct {
	Name       string
	Label      string
	Activities []Activity
}

// Slots returns the three slots in chronological order.
func (a DayActivities) Slots() []Slot {
	return []Slot{
		{Name: "morning", Label: "Rano", Activities: a.Morning},
		{Name: "afternoon", Label: "Popołudnie", Activities: a.Afternoon},
		{Name: "evening", Label: "Wieczór", Activities: a.Evening},
	}
}

// Count returns the number of activities across all slots.
func (a DayActivities) Count() int {
	return len(a.Morning) + len(a.Afternoon) + len(a.Evening)
}

type Activity struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	PriceCategory PriceCategory `json:"priceCategory"`
	Logistics     Logistics     `json:"logistics"`
}

type Logistics struct {
	Address       string `json:"address,omitempty"`
	MapLink       string `json:"mapLink,omitempty"`
	EstimatedTime string `json:"estimatedTime,omitempty"`
}
