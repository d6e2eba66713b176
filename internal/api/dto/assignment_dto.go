package dto

import "github.com/societyops/society-service/internal/assign"

// RejectAssignmentRequest payload.
type RejectAssignmentRequest struct {
	Reason string `json:"reason"`
}

// RescheduleRequest payload.
type RescheduleRequest struct {
	Note string `json:"note"`
}

// UpdateAvailabilityRequest payload.
type UpdateAvailabilityRequest struct {
	Availability string `json:"availability"`
}

// AssignmentResponse reports a selection outcome. Decision is present only
// when a technician was assigned.
type AssignmentResponse struct {
	Assigned bool                    `json:"assigned"`
	Reason   string                  `json:"reason,omitempty"`
	Decision *assign.DecisionPayload `json:"decision,omitempty"`
	Issue    IssueSummary            `json:"issue"`
}
