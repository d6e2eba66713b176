package dto

import (
	"time"

	"github.com/societyops/society-service/internal/domain"
)

// CreateBillRequest payload.
type CreateBillRequest struct {
	ResidentID  string          `json:"resident_id"`
	Type        domain.BillType `json:"type"`
	Amount      float64         `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	Description string          `json:"description"`
	Comments    string          `json:"comments"`
}

// DisputeBillRequest payload.
type DisputeBillRequest struct {
	Reason string `json:"reason"`
}

// BillResponse is the resident-facing bill view.
type BillResponse struct {
	ID          string            `json:"id"`
	ResidentID  string            `json:"resident_id"`
	Type        domain.BillType   `json:"type"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	DueDate     time.Time         `json:"due_date"`
	Status      domain.BillStatus `json:"status"`
	Description string            `json:"description,omitempty"`
	Comments    string            `json:"comments,omitempty"`
	PaidAt      *time.Time        `json:"paid_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
