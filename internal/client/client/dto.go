package client

import (
	"time"

	"github.com/dmitrijs2005/rechub/internal/server/models"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	TokenPair
	User *models.User `json:"user"`
}

type EnrollmentRequest struct {
	ProgramID       string `json:"programId"`
	ParticipantName string `json:"participantName"`
	Email           string `json:"email"`
	Notes           string `json:"notes"`
}

type ReviewRequest struct {
	User   string `json:"user"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type EmailRequest struct {
	Subject       string `json:"subject"`
	Message       string `json:"message"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
}

type FailedRecipient struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type DispatchResult struct {
	Success bool              `json:"success"`
	Reason  string            `json:"reason,omitempty"`
	Count   int               `json:"count"`
	Sent    int               `json:"sent"`
	Failed  []FailedRecipient `json:"failed,omitempty"`
	LogID   string            `json:"logId,omitempty"`
}

type SeedResult struct {
	Success bool `json:"success"`
	Seeded  int  `json:"seeded"`
}

type UploadTicket struct {
	Key         string    `json:"key"`
	UploadURL   string    `json:"uploadUrl"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type errorResponse struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}
