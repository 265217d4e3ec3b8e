package models

import "time"

// EmailLog is the audit record of one dispatch.
type EmailLog struct {
	ID               string    `json:"id"`
	SentBy           string    `json:"sentBy"`
	ProgramID        string    `json:"programId"`
	Subject          string    `json:"subject"`
	Message          string    `json:"message"`
	Recipients       []string  `json:"recipients"`
	FailedRecipients []string  `json:"failedRecipients"`
	AttachmentURL    *string   `json:"attachmentUrl"`
	SentAt           time.Time `json:"sentAt"`
}
