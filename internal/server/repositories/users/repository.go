// Package users stores identity records for the credential store.
package users

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in its ID and CreatedAt. A taken email
	// yields common.ErrDuplicateEmail.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateRole changes only the role column.
	UpdateRole(ctx context.Context, id string, role models.Role) error
}
