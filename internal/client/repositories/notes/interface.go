// Package notes stores private per-program notes on the local machine.
package notes

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/client/models"
)

type Repository interface {
	// Save creates or replaces the note for n.ProgramID.
	Save(ctx context.Context, n *models.Note) error
	// Get returns common.ErrorNotFound when the program has no note.
	Get(ctx context.Context, programID string) (*models.Note, error)
	Delete(ctx context.Context, programID string) error
	List(ctx context.Context) ([]models.Note, error)
}
