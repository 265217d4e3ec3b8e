// Package models defines client-side records kept in the local SQLite
// database.
package models

import "time"

// Favorite is a program the user starred on this machine.
type Favorite struct {
	ProgramID   string
	ProgramName string
	AddedAt     time.Time
}

// Note is a private per-program note. There is at most one per program.
type Note struct {
	ProgramID string
	Body      string
	UpdatedAt time.Time
}
