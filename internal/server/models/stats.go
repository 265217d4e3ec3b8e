package models

import (
	"slices"
	"time"
)

// SummaryID is the key of the single global summary row.
const SummaryID = "summary"

// Stats holds counters shared by the per-program and the global record.
// Version guards optimistic updates; zero means the row does not exist yet.
type Stats struct {
	Enrollments        int64     `json:"enrollments"`
	ParticipantEmails  []string  `json:"participantEmails"`
	UniqueParticipants int       `json:"uniqueParticipants"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Version            int64     `json:"-"`
}

// AddEnrollment counts one enrollment and, when email is non-empty, adds it
// to the participant set. UniqueParticipants is recomputed from the set.
func (s *Stats) AddEnrollment(email string) {
	s.Enrollments++
	if email != "" && !slices.Contains(s.ParticipantEmails, email) {
		s.ParticipantEmails = append(s.ParticipantEmails, email)
	}
	s.UniqueParticipants = len(s.ParticipantEmails)
}

// ProgramStats are the counters for one program.
type ProgramStats struct {
	ProgramID   string `json:"programId"`
	ProgramName string `json:"programName"`
	Stats
}

// Summary is the global counters record.
type Summary struct {
	TotalPrograms int `json:"totalPrograms"`
	Stats
}
