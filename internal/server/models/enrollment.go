package models

import "time"

// Enrollment records one participant signing up for a program. It is
// immutable once created; the Counted flags are bookkeeping owned by the
// stats aggregator.
type Enrollment struct {
	ID              string    `json:"id"`
	ProgramID       string    `json:"programId"`
	ProgramName     string    `json:"programName"`
	ParticipantName string    `json:"participantName"`
	Email           string    `json:"email"`
	Notes           string    `json:"notes"`
	UserID          *string   `json:"userId"`
	CreatedAt       time.Time `json:"createdAt"`

	ProgramCounted bool `json:"-"`
	SummaryCounted bool `json:"-"`
}
