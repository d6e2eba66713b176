package assign

import (
	"fmt"
	"strings"

	"github.com/societyops/society-service/internal/domain"
)

// Action identifiers are stable; clients branch on Type, never on labels.
const (
	ActionAccept     = "accept"
	ActionReschedule = "reschedule"
	ActionReject     = "reject"
)

// Action is one choice offered to the resident in a decision payload.
type Action struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// TechnicianContact identifies the assigned technician to the resident.
type TechnicianContact struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Phone        string              `json:"phone"`
	Email        string              `json:"email"`
	Skills       []string            `json:"skills"`
	HourlyRate   float64             `json:"hourly_rate"`
	Availability domain.Availability `json:"availability"`
}

// IssueSummary restates the issue inside a decision payload.
type IssueSummary struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    domain.IssueCategory `json:"category"`
}

// DecisionPayload is the resident-facing assignment notification. It is a
// self-describing projection computed fresh per request, never cached and
// never persisted.
type DecisionPayload struct {
	Type          string            `json:"type"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	Technician    TechnicianContact `json:"technician"`
	Issue         IssueSummary      `json:"issue"`
	EstimatedTime string            `json:"estimated_time"`
	EstimatedCost CostEstimate      `json:"estimated_cost"`
	Actions       []Action          `json:"actions"`
}

// decisionActions returns the three actions offered on every assignment.
func decisionActions() []Action {
	return []Action{
		{Type: ActionAccept, Label: "Accept Assignment", Description: "Accept this technician for your issue"},
		{Type: ActionReschedule, Label: "Request Reschedule", Description: "Request a different time slot"},
		{Type: ActionReject, Label: "Reject & Request Another", Description: "Request a different technician"},
	}
}

// BuildDecision projects the current assignment and estimates into a
// decision payload. Pure: neither the issue nor the technician is mutated.
func BuildDecision(issue *domain.Issue, tech domain.Technician) DecisionPayload {
	return DecisionPayload{
		Type:  "technician_assignment",
		Title: fmt.Sprintf("Technician Assigned: %s", tech.Name),
		Message: fmt.Sprintf("%s has been assigned to your issue. They specialize in %s and charge ₹%.0f/hour.",
			tech.Name, strings.Join(tech.Skills, ", "), tech.HourlyRate),
		Technician: TechnicianContact{
			ID:           tech.ID,
			Name:         tech.Name,
			Phone:        tech.Phone,
			Email:        tech.Email,
			Skills:       append([]string(nil), tech.Skills...),
			HourlyRate:   tech.HourlyRate,
			Availability: tech.Availability,
		},
		Issue: IssueSummary{
			ID:          issue.ID,
			Title:       issue.Title,
			Description: issue.Description,
			Category:    issue.Category,
		},
		EstimatedTime: EstimateTime(issue.Category, issue.Title, issue.Description),
		EstimatedCost: EstimateCost(issue.Category, tech.HourlyRate),
		Actions:       decisionActions(),
	}
}
