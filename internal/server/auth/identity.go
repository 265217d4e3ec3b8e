package auth

import (
	"context"

	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// Identity is the authenticated caller. The zero value is a guest.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller stored by WithIdentity, or a guest.
func FromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok {
		return Identity{Role: models.RoleGuest}
	}
	return id
}
