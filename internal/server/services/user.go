// Package services contains server-side business logic. This file implements
// UserService, the server half of the credential store: registration, login,
// logout and the JWT/refresh-token session it issues.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/cryptox"
	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/dmitrijs2005/rechub/internal/server/config"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/rechub/internal/server/roles"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	TokenPair
	User *models.User `json:"user"`
}

type UserService struct {
	db                           dbx.DBTX
	withTx                       txFunc
	repomanager                  repomanager.RepositoryManager
	resolver                     *roles.Resolver
	log                          logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, resolver *roles.Resolver, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		withTx:                       sqlTx(db),
		repomanager:                  m,
		resolver:                     resolver,
		log:                          log,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a profile and opens a session for it. The requested
// role may be participant or coach (empty means participant); the role
// resolver may still raise it from the allow-lists.
func (s *UserService) Register(ctx context.Context, email, password string, requested models.Role) (*Session, error) {
	email = common.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", common.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidArgument, MinPasswordLength)
	}
	switch requested {
	case "":
		requested = models.RoleParticipant
	case models.RoleParticipant, models.RoleCoach:
	default:
		return nil, fmt.Errorf("%w: role %q cannot be requested", common.ErrInvalidArgument, requested)
	}

	_, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateEmail
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	salt := cryptox.NewSalt()
	user := &models.User{
		Email:        email,
		Role:         s.resolver.Resolve(email, requested),
		Salt:         salt,
		PasswordHash: cryptox.HashPassword(salt, password),
	}

	var session *Session
	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			if errors.Is(err, common.ErrDuplicateEmail) {
				return err
			}
			return fmt.Errorf("error creating user: %w", err)
		}
		pair, err := s.generateTokenPair(ctx, created, tx)
		if err != nil {
			return err
		}
		session = &Session{TokenPair: *pair, User: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", session.User.ID, "role", session.User.Role)
	return session, nil
}

// Login verifies the password and opens a session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = common.NormalizeEmail(email)
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.HashPassword(cryptox.NewSalt(), password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !cryptox.VerifyPassword(user.Salt, password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	if err := s.resolver.Reconcile(ctx, repo, user); err != nil {
		s.log.Warn(ctx, "role reconcile failed", "user_id", user.ID, "error", err)
	}

	var pair *TokenPair
	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.RefreshTokens(tx).DeleteExpired(ctx, user.ID, time.Now()); err != nil {
			return fmt.Errorf("error pruning refresh tokens: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return &Session{TokenPair: *pair, User: user}, nil
}

// Logout revokes refreshToken. Unknown or empty tokens are not an error.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Refresh spends a refresh token and returns a fresh TokenPair. The token
// is consumed inside the transaction that issues its replacement, so of two
// concurrent refreshes with the same token only one succeeds. Expired tokens
// are removed and yield ErrRefreshTokenExpired.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	expired := false
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		if token.Expires.Before(time.Now()) {
			expired = true
			return nil
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error loading user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, common.ErrRefreshTokenExpired
	}
	return pair, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	id := auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
	access, err := auth.GenerateToken(id, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	expires := time.Now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, expires); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
