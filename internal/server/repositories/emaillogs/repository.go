// Package emaillogs persists the audit trail of participant emails.
package emaillogs

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/server/models"
)

type Repository interface {
	// Create appends l and fills in ID and SentAt.
	Create(ctx context.Context, l *models.EmailLog) error
	ListByProgram(ctx context.Context, programID string) ([]*models.EmailLog, error)
}
