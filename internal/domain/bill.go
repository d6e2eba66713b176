package domain

import "time"

// BillType enumerates charge categories.
type BillType string

const (
	BillTypeMaintenance BillType = "maintenance"
	BillTypeElectricity BillType = "electricity"
	BillTypeWater       BillType = "water"
	BillTypeGas         BillType = "gas"
	BillTypeParking     BillType = "parking"
	BillTypeAmenities   BillType = "amenities"
	BillTypeOther       BillType = "other"
)

// BillStatus enumerates payment lifecycle states.
type BillStatus string

const (
	BillStatusPending   BillStatus = "pending"
	BillStatusPaid      BillStatus = "paid"
	BillStatusOverdue   BillStatus = "overdue"
	BillStatusDisputed  BillStatus = "disputed"
	BillStatusCancelled BillStatus = "cancelled"
)

// Bill is a charge raised against a resident.
type Bill struct {
	ID          string
	ResidentID  string
	Type        BillType
	Amount      float64
	Currency    string
	DueDate     time.Time
	Status      BillStatus
	Description string
	Comments    string
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
