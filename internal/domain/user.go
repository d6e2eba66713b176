package domain

import "time"

// UserRole enumerates account roles within a society.
type UserRole string

const (
	RoleResident   UserRole = "resident"
	RoleTechnician UserRole = "technician"
	RoleAdmin      UserRole = "admin"
)

// Availability describes whether a technician can take new work.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityOffline   Availability = "offline"
)

// User is the single account model: residents, technicians and admins share
// one table, with the technician fields populated only for that role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Phone        string
	FlatNumber   *string
	Building     *string
	Skills       []string
	HourlyRate   float64
	Availability Availability
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TechnicianProfile projects the directory view of a technician user.
func (u *User) TechnicianProfile() Technician {
	return Technician{
		ID:           u.ID,
		Name:         u.Name,
		Phone:        u.Phone,
		Email:        u.Email,
		Skills:       append([]string(nil), u.Skills...),
		HourlyRate:   u.HourlyRate,
		Availability: u.Availability,
	}
}
