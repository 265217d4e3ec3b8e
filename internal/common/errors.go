// Package common defines shared constants and sentinel errors used across
// client and server layers of RecHub. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrAlreadyCounted  = errors.New("enrollment already counted")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Caller identity and authorization.
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")

	// Input validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// A required external collaborator (mail transport, object storage)
	// is not configured.
	ErrUnconfigured = errors.New("not configured")

	// An external collaborator failed at call time.
	ErrUnavailable = errors.New("unavailable")

	// Credential store errors.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
