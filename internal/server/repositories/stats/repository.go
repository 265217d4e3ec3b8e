// Package stats stores the per-program and global enrollment counters.
// Writes are optimistic: each record carries a version and a save only
// succeeds against the version that was read.
package stats

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/server/models"
)

type Repository interface {
	// GetProgram returns the program's counters, or a zero record with
	// Version 0 when none exist yet.
	GetProgram(ctx context.Context, programID string) (*models.ProgramStats, error)
	// SaveProgram inserts (Version 0) or updates (Version n) the record and
	// bumps s.Version. A concurrent write yields common.ErrVersionConflict.
	SaveProgram(ctx context.Context, s *models.ProgramStats) error

	GetSummary(ctx context.Context) (*models.Summary, error)
	SaveSummary(ctx context.Context, s *models.Summary) error
}
