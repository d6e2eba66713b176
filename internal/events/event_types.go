package events

import (
	"time"

	"github.com/societyops/society-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueReported       EventType = "issue_reported"
	EventTechnicianAssigned  EventType = "technician_assigned"
	EventAssignmentAccepted  EventType = "assignment_accepted"
	EventAssignmentRejected  EventType = "assignment_rejected"
	EventRescheduleRequested EventType = "reschedule_requested"
	EventIssueStatusChanged  EventType = "issue_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID *string         `json:"user_id,omitempty"`
	Role   domain.UserRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueReportedPayload payload.
type IssueReportedPayload struct {
	Category domain.IssueCategory `json:"category"`
	Priority domain.IssuePriority `json:"priority"`
	Title    string               `json:"title"`
}

// TechnicianAssignedPayload payload.
type TechnicianAssignedPayload struct {
	TechnicianID   string  `json:"technician_id"`
	TechnicianName string  `json:"technician_name"`
	EstimatedTime  string  `json:"estimated_time"`
	EstimatedCost  float64 `json:"estimated_cost"`
}

// AssignmentRejectedPayload payload.
type AssignmentRejectedPayload struct {
	TechnicianID string `json:"technician_id"`
	Reason       string `json:"reason,omitempty"`
}

// RescheduleRequestedPayload payload.
type RescheduleRequestedPayload struct {
	TechnicianID string `json:"technician_id"`
	Note         string `json:"note,omitempty"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
	Comment   string             `json:"comment,omitempty"`
}
