package models

import (
	"strings"
	"time"
)

// Profile is the user-facing account record, one per authenticated user.
type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProfile seeds a profile for a user seen for the first time. The display
// name defaults to the local part of the email.
func NewProfile(userID, email string) *Profile {
	name, _, _ := strings.Cut(email, "@")
	return &Profile{UserID: userID, DisplayName: name, Email: email}
}

// Role is a privilege level.
type Role string

const (
	RoleStandard   Role = "standard"
	RolePrivileged Role = "admin"
)

// LeastPrivileged is the fail-closed default used whenever a role lookup fails.
func LeastPrivileged() Role {
	return RoleStandard
}

// RoleAssignment binds a role to a user.
type RoleAssignment struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}
