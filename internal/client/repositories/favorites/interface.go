// Package favorites stores the programs a user starred locally.
package favorites

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/client/models"
)

type Repository interface {
	// Add inserts the favorite or refreshes its name.
	Add(ctx context.Context, f *models.Favorite) error
	// Remove deletes the favorite. Removing an unknown program is not an error.
	Remove(ctx context.Context, programID string) error
	// List returns favorites, most recently added first.
	List(ctx context.Context) ([]models.Favorite, error)
	Contains(ctx context.Context, programID string) (bool, error)
}
