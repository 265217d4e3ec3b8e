package middleware

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/gin-gonic/gin"
)

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secretKey string) *Authenticator {
	return &Authenticator{secret: []byte(secretKey)}
}

// Identify attaches the bearer token's identity to the request context.
// Requests without a token continue as guests; a malformed or expired
// token is rejected.
func (a *Authenticator) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		if header == "" {
			c.Next()
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			AbortWithError(c, fmt.Errorf("%w: authorization header must be 'Bearer <token>'", common.ErrUnauthenticated))
			return
		}
		id, err := auth.ParseToken(token, a.secret)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireAuth rejects guests. It expects Identify earlier in the chain.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.FromContext(c.Request.Context()).Authenticated() {
			AbortWithError(c, common.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, strings.TrimSpace(common.BearerPrefix)) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
