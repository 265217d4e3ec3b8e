// Package services contains the client's application services. They combine
// the remote API with the local session and stores; the CLI only talks to
// these services.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/rechub/internal/client/session"
	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/server/models"
)

// ErrSessionExpired is returned when the server rejected the access token
// and the refresh token could not renew it. The local session is cleared.
var ErrSessionExpired = fmt.Errorf("%w: session expired, please log in again", common.ErrUnauthenticated)

// AuthService owns the client's session.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte, role string) (session.Session, error)
	Login(ctx context.Context, email string, password []byte) (session.Session, error)
	// Logout revokes the refresh token on the server when possible and
	// always clears the local session.
	Logout(ctx context.Context) error
	// Whoami refreshes the cached identity from the server.
	Whoami(ctx context.Context) (session.Session, error)
	Current() session.Session
	Ping(ctx context.Context) error
}

type authService struct {
	api    API
	store  *session.Store
	caller *Caller
	log    logging.Logger
}

func NewAuthService(api API, store *session.Store, log logging.Logger) AuthService {
	return &authService{api: api, store: store, caller: NewCaller(api, store, log), log: log}
}

func (a *authService) Current() session.Session {
	return a.store.Current()
}

func (a *authService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

func (a *authService) Register(ctx context.Context, email string, password []byte, role string) (session.Session, error) {
	res, err := a.api.Register(ctx, email, string(password), role)
	if err != nil {
		return session.Session{}, err
	}
	return a.establish(ctx, res.AccessToken, res.RefreshToken, res.User)
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (session.Session, error) {
	res, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		return session.Session{}, err
	}
	return a.establish(ctx, res.AccessToken, res.RefreshToken, res.User)
}

func (a *authService) establish(ctx context.Context, access, refresh string, u *models.User) (session.Session, error) {
	sess := session.Session{AccessToken: access, RefreshToken: refresh}
	if u != nil {
		sess.UserID = u.ID
		sess.Email = u.Email
		sess.Role = string(u.Role)
	}
	if err := a.store.Establish(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

func (a *authService) Logout(ctx context.Context) error {
	sess := a.store.Current()
	if sess.RefreshToken != "" {
		if err := a.api.Logout(ctx, sess.RefreshToken); err != nil {
			a.log.Warn(ctx, "server logout failed", "error", err)
		}
	}
	return a.store.Clear(ctx)
}

func (a *authService) Whoami(ctx context.Context) (session.Session, error) {
	if !a.store.Current().Authenticated() {
		return session.Session{}, common.ErrUnauthenticated
	}

	err := a.caller.Do(ctx, func() error {
		u, err := a.api.Me(ctx)
		if err != nil {
			return err
		}
		cur := a.store.Current()
		if cur.Role == string(u.Role) && cur.Email == u.Email {
			return nil
		}
		cur.Role = string(u.Role)
		cur.Email = u.Email
		return a.store.Establish(ctx, cur)
	})
	if err != nil {
		return session.Session{}, err
	}
	return a.store.Current(), nil
}
