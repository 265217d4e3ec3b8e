// Package refreshtokens declares the server-side repository contract for
// the refresh tokens that back login sessions.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID valid until expires.
	Create(ctx context.Context, userID string, token string, expires time.Time) error

	// Consume deletes a token and returns it, so each token can be spent
	// once. Absent or already consumed tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete revokes a token. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes userID's tokens that expired before now.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}
