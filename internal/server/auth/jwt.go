// Package auth issues and verifies access tokens and carries the verified
// caller through request contexts.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the caller identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID string      `json:"uid"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity it carries.
// Expired tokens yield common.ErrTokenExpired, anything else unusable
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
