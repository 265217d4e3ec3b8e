// Package enrollments stores program enrollments and the per-enrollment
// bookkeeping flags used by the stats aggregator.
package enrollments

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// Counter names one of the aggregator's idempotency flags.
type Counter string

const (
	ProgramCounter Counter = "program_counted"
	SummaryCounter Counter = "summary_counted"
)

type Repository interface {
	// Create inserts e and fills in ID and CreatedAt.
	Create(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	ListByProgram(ctx context.Context, programID string) ([]*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Enrollment, error)
	// ListUncounted returns IDs of enrollments missing at least one counter,
	// oldest first.
	ListUncounted(ctx context.Context, limit int) ([]string, error)
	// MarkCounted sets the flag and returns common.ErrAlreadyCounted when it
	// was already set.
	MarkCounted(ctx context.Context, id string, c Counter) error
}
