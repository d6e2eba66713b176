package dto

import (
	"time"

	"github.com/societyops/society-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Password   string          `json:"password"`
	Role       domain.UserRole `json:"role"`
	Phone      string          `json:"phone"`
	FlatNumber string          `json:"flat_number"`
	Building   string          `json:"building"`
	Skills     []string        `json:"skills"`
	HourlyRate float64         `json:"hourly_rate"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse carries a signed token.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public account view.
type UserResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Role         domain.UserRole     `json:"role"`
	Phone        string              `json:"phone,omitempty"`
	FlatNumber   *string             `json:"flat_number,omitempty"`
	Building     *string             `json:"building,omitempty"`
	Skills       []string            `json:"skills,omitempty"`
	HourlyRate   float64             `json:"hourly_rate,omitempty"`
	Availability domain.Availability `json:"availability,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}
