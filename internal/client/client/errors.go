package client

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/rechub/internal/common"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Unwrap maps the error kind, or the status when the kind is unknown, to a
// sentinel from package common.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case "invalid-credentials":
		return common.ErrInvalidCredentials
	case "duplicate-email":
		return common.ErrDuplicateEmail
	case "unconfigured":
		return common.ErrUnconfigured
	case "unauthenticated":
		return common.ErrUnauthenticated
	case "permission-denied":
		return common.ErrPermissionDenied
	case "invalid-argument":
		return common.ErrInvalidArgument
	case "not-found":
		return common.ErrorNotFound
	case "unavailable":
		return common.ErrUnavailable
	case "conflict":
		return common.ErrVersionConflict
	case "internal":
		return common.ErrorInternal
	}

	switch e.Status {
	case http.StatusUnauthorized:
		return common.ErrUnauthenticated
	case http.StatusForbidden:
		return common.ErrPermissionDenied
	case http.StatusBadRequest:
		return common.ErrInvalidArgument
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return common.ErrUnavailable
	default:
		return common.ErrorInternal
	}
}
