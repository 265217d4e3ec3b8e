package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/rechub/internal/common"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline

// Register prompts for an email, a password and an optional role, creates
// the account and opens a session.
func (a *App) Register(ctx context.Context, _ []string) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	role, err := getSimpleText(a.reader, "Role (participant or coach, empty for participant)", a.out)
	if err != nil {
		return err
	}

	sess, err := a.auth.Register(ctx, email, password, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and logged in as %s (%s)\n", sess.Email, sess.EffectiveRole())
	return nil
}

func (a *App) Login(ctx context.Context, _ []string) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", sess.Email, sess.EffectiveRole())
	return nil
}

// Logout ends the session on the server when reachable and forgets it
// locally.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Whoami(ctx context.Context, _ []string) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "guest")
		return nil
	}
	sess, err := a.auth.Whoami(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s) id=%s\n", sess.Email, sess.EffectiveRole(), sess.UserID)
	return nil
}
