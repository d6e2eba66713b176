package dto

import (
	"time"

	"github.com/societyops/society-service/internal/domain"
)

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    domain.IssueCategory `json:"category"`
	Priority    domain.IssuePriority `json:"priority"`
	Area        string               `json:"area"`
}

// ResolveIssueRequest payload.
type ResolveIssueRequest struct {
	Note string `json:"note"`
}

// CancelIssueRequest payload.
type CancelIssueRequest struct {
	Reason string `json:"reason"`
}

// IssueSummary response.
type IssueSummary struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	Category   domain.IssueCategory `json:"category"`
	Priority   domain.IssuePriority `json:"priority"`
	Status     domain.IssueStatus   `json:"status"`
	AssignedTo *string              `json:"assigned_to"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// IssueDetailResponse provides full issue info including the timeline.
type IssueDetailResponse struct {
	ID                  string                  `json:"id"`
	ReportedBy          string                  `json:"reported_by"`
	AssignedTo          *string                 `json:"assigned_to"`
	Title               string                  `json:"title"`
	Description         string                  `json:"description"`
	Category            domain.IssueCategory    `json:"category"`
	Priority            domain.IssuePriority    `json:"priority"`
	Status              domain.IssueStatus      `json:"status"`
	Location            IssueLocationResponse   `json:"location"`
	Timeline            []TimelineEntryResponse `json:"timeline"`
	EstimatedCompletion *time.Time              `json:"estimated_completion"`
	ActualCompletion    *time.Time              `json:"actual_completion"`
	Cost                IssueCostResponse       `json:"cost"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// IssueLocationResponse places an issue within the society.
type IssueLocationResponse struct {
	FlatNumber string `json:"flat_number,omitempty"`
	Building   string `json:"building,omitempty"`
	Area       string `json:"area,omitempty"`
}

// IssueCostResponse carries estimated and recorded figures.
type IssueCostResponse struct {
	Estimated *float64 `json:"estimated"`
	Actual    *float64 `json:"actual"`
	Currency  string   `json:"currency"`
}

// TimelineEntryResponse represents one audit record.
type TimelineEntryResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	ActorID   *string   `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}
