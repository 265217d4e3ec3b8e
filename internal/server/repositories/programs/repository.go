// Package programs stores the program catalog and program reviews.
package programs

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/server/models"
)

type Repository interface {
	// Upsert writes p, merging over an existing program with the same ID.
	Upsert(ctx context.Context, p *models.Program) error
	// UpsertReview writes r, merging over an existing review with the same
	// program and review ID.
	UpsertReview(ctx context.Context, r *models.Review) error
	// CreateReview inserts a new review and fills in CreatedAt.
	CreateReview(ctx context.Context, r *models.Review) error

	// List returns every program ordered by name with review aggregates.
	List(ctx context.Context) ([]*models.Program, error)
	// Get returns one program with aggregates, or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Program, error)
	ListReviews(ctx context.Context, programID string) ([]models.Review, error)
}
