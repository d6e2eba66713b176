package domain

// Technician is the read-only directory snapshot the assignment engine
// scores against. Skills are free tags and are not guaranteed to line up
// with the issue category enumeration.
type Technician struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email"`
	Skills       []string     `json:"skills"`
	HourlyRate   float64      `json:"hourly_rate"`
	Availability Availability `json:"availability"`
}
