package common

import (
	"errors"

	"google.golang.org/grpc/codes"
)

// Code classifies err into a canonical status code. Unknown errors are
// reported as codes.Internal.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrRefreshTokenExpired):
		return codes.Unauthenticated
	case errors.Is(err, ErrPermissionDenied):
		return codes.PermissionDenied
	case errors.Is(err, ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, ErrUnconfigured):
		return codes.FailedPrecondition
	case errors.Is(err, ErrDuplicateEmail):
		return codes.AlreadyExists
	case errors.Is(err, ErrorNotFound):
		return codes.NotFound
	case errors.Is(err, ErrUnavailable):
		return codes.Unavailable
	case errors.Is(err, ErrVersionConflict):
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// Kind returns the stable machine-readable name of err's category, as
// reported to API callers.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid-credentials"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate-email"
	case errors.Is(err, ErrUnconfigured):
		return "unconfigured"
	}

	switch Code(err) {
	case codes.OK:
		return ""
	case codes.Unauthenticated:
		return "unauthenticated"
	case codes.PermissionDenied:
		return "permission-denied"
	case codes.InvalidArgument:
		return "invalid-argument"
	case codes.NotFound:
		return "not-found"
	case codes.Unavailable:
		return "unavailable"
	case codes.Aborted:
		return "conflict"
	default:
		return "internal"
	}
}
