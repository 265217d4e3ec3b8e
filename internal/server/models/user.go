// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is a privilege level. Ordering of the constants carries no meaning;
// privilege checks compare explicitly.
type Role string

const (
	RoleGuest       Role = "guest"
	RoleParticipant Role = "participant"
	RoleCoach       Role = "coach"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleParticipant, RoleCoach, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may read statistics and message participants.
func (r Role) IsStaff() bool {
	return r == RoleCoach || r == RoleAdmin
}

// User is a stored identity. Email is unique and always normalized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Salt         []byte    `json:"-"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
