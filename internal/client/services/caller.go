package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/rechub/internal/client/session"
	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/logging"
)

// Caller runs authenticated API calls, renewing the session once when the
// access token was rejected.
type Caller struct {
	api   API
	store *session.Store
	log   logging.Logger
}

func NewCaller(api API, store *session.Store, log logging.Logger) *Caller {
	return &Caller{api: api, store: store, log: log}
}

// Do runs fn. When fn fails as unauthenticated and the session holds a
// refresh token, the token pair is rotated and fn runs once more. A refresh
// token the server no longer accepts clears the session and yields
// ErrSessionExpired.
func (c *Caller) Do(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, common.ErrUnauthenticated) {
		return err
	}

	sess := c.store.Current()
	if sess.RefreshToken == "" {
		return err
	}

	pair, rerr := c.api.Refresh(ctx, sess.RefreshToken)
	if rerr != nil {
		if errors.Is(rerr, common.ErrUnauthenticated) {
			if cerr := c.store.Clear(ctx); cerr != nil {
				c.log.Warn(ctx, "failed to clear expired session", "error", cerr)
			}
			return ErrSessionExpired
		}
		return rerr
	}
	if err := c.store.UpdateTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return err
	}
	c.log.Debug(ctx, "access token refreshed")

	return fn()
}
