package assign

import (
	"strings"

	"github.com/societyops/society-service/internal/domain"
)

// Currency is the fixed tag attached to cost estimates.
const Currency = "INR"

// Defaults for categories absent from the tables below.
const (
	defaultTimeRange  = "2-4 hours"
	defaultMultiplier = 2.5
)

// timeRanges maps categories to coarse completion windows.
var timeRanges = map[domain.IssueCategory]string{
	domain.CategoryPlumbing:   "2-4 hours",
	domain.CategoryElectrical: "1-3 hours",
	domain.CategoryCarpentry:  "2-6 hours",
	domain.CategoryCleaning:   "1-2 hours",
	domain.CategorySecurity:   "1-2 hours",
	domain.CategoryElevator:   "4-8 hours",
	domain.CategoryParking:    "1-3 hours",
	domain.CategoryGarden:     "2-4 hours",
	domain.CategoryOther:      "2-4 hours",
}

// hourMultipliers maps categories to estimated labor hours.
var hourMultipliers = map[domain.IssueCategory]float64{
	domain.CategoryPlumbing:   2.5,
	domain.CategoryElectrical: 2.0,
	domain.CategoryCarpentry:  3.0,
	domain.CategoryCleaning:   1.5,
	domain.CategorySecurity:   1.5,
	domain.CategoryElevator:   6.0,
	domain.CategoryParking:    2.0,
	domain.CategoryGarden:     2.5,
	domain.CategoryOther:      2.5,
}

// urgencyKeywords mark an issue as urgent when any appears in the title or
// description (case-insensitive substring match).
var urgencyKeywords = []string{"emergency", "urgent", "broken", "not working", "leak", "spark"}

// IsUrgent reports whether the issue text contains an urgency keyword.
func IsUrgent(title, description string) bool {
	title = strings.ToLower(title)
	description = strings.ToLower(description)
	for _, keyword := range urgencyKeywords {
		if strings.Contains(title, keyword) || strings.Contains(description, keyword) {
			return true
		}
	}
	return false
}

// EstimateTime returns the coarse completion window for a category,
// annotated when the issue text signals urgency. The annotation changes
// presentation only, never the underlying range. Unrecognized categories
// fall back to the default range.
func EstimateTime(category domain.IssueCategory, title, description string) string {
	base, ok := timeRanges[category]
	if !ok {
		base = defaultTimeRange
	}
	if IsUrgent(title, description) {
		return base + " (Urgent)"
	}
	return base
}

// CostEstimate is the figure shown to the resident before work starts.
type CostEstimate struct {
	Hours    float64 `json:"estimated_hours"`
	Rate     float64 `json:"hourly_rate"`
	Total    float64 `json:"total_cost"`
	Currency string  `json:"currency"`
}

// EstimateCost multiplies the category's hour multiplier by the hourly
// rate. Linear and deterministic; unrecognized categories use the default
// multiplier.
func EstimateCost(category domain.IssueCategory, hourlyRate float64) CostEstimate {
	multiplier, ok := hourMultipliers[category]
	if !ok {
		multiplier = defaultMultiplier
	}
	return CostEstimate{
		Hours:    multiplier,
		Rate:     hourlyRate,
		Total:    hourlyRate * multiplier,
		Currency: Currency,
	}
}
