package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role gates access to handler groups. Checked once at the transport
// boundary, never by ad hoc string comparison inside handlers.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
)

// ParseRole normalizes and validates a role value.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleParticipant:
		return RoleParticipant, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, raw)
	}
}

// User is an exercise account. PasswordHash never leaves the service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	TeamName     string    `json:"team_name,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
