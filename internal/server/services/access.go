package services

import (
	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
)

func requireAuthenticated(caller auth.Identity) error {
	if !caller.Authenticated() {
		return common.ErrUnauthenticated
	}
	return nil
}

// requireStaff admits coaches and admins.
func requireStaff(caller auth.Identity) error {
	if err := requireAuthenticated(caller); err != nil {
		return err
	}
	if !caller.Role.IsStaff() {
		return common.ErrPermissionDenied
	}
	return nil
}
