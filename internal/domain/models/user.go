package models

import "time"

const (
	RoleDriver    = "DRIVER"
	RolePassenger = "PASSENGER"
	RoleBoth      = "BOTH"
)

type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	FullName      string    `json:"full_name"`
	Phone         string    `json:"phone"`
	IdentityID    string    `json:"identity_id"`
	DriverLicense string    `json:"driver_license,omitempty"`
	Role          string    `json:"role"`
	Verified      bool      `json:"user_is_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserUpdate supports PATCH-style updates via key presence.
type UserUpdate struct {
	FullName      *string
	Phone         *string
	DriverLicense *string
	Role          *string
	Password      *string
}
