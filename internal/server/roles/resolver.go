// Package roles maps an email address to a privilege level.
package roles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// RoleUpdater persists a role change. users.Repository satisfies it.
type RoleUpdater interface {
	UpdateRole(ctx context.Context, id string, role models.Role) error
}

// Resolver decides roles from the configured allow-lists.
type Resolver struct {
	admins  map[string]struct{}
	coaches map[string]struct{}
}

func NewResolver(adminEmails, coachEmails []string) *Resolver {
	return &Resolver{admins: toSet(adminEmails), coaches: toSet(coachEmails)}
}

func toSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = common.NormalizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// Resolve returns admin for allow-listed admins, then coach for
// allow-listed coaches, then current when set, then participant.
func (r *Resolver) Resolve(email string, current models.Role) models.Role {
	email = common.NormalizeEmail(email)
	if _, ok := r.admins[email]; ok {
		return models.RoleAdmin
	}
	if _, ok := r.coaches[email]; ok {
		return models.RoleCoach
	}
	if current != "" {
		return current
	}
	return models.RoleParticipant
}

// IsAdmin reports whether email is allow-listed as admin or the stored role
// is already admin.
func (r *Resolver) IsAdmin(email string, stored models.Role) bool {
	_, ok := r.admins[common.NormalizeEmail(email)]
	return ok || stored == models.RoleAdmin
}

// Reconcile resolves u's role and, when it differs from the stored one,
// writes only the role column. u.Role is updated in place.
func (r *Resolver) Reconcile(ctx context.Context, repo RoleUpdater, u *models.User) error {
	role := r.Resolve(u.Email, u.Role)
	if role == u.Role {
		return nil
	}
	if err := repo.UpdateRole(ctx, u.ID, role); err != nil {
		return fmt.Errorf("error updating role: %w", err)
	}
	u.Role = role
	return nil
}
