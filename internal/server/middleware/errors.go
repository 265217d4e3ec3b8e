package middleware

import (
	"net/http"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
)

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// HTTPStatus maps err's canonical code to an HTTP status.
func HTTPStatus(err error) int {
	switch common.Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.FailedPrecondition, codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes the error envelope for err. Internal errors are
// reported without their message; the detail is kept on the gin context
// for the request logger.
func AbortWithError(c *gin.Context, err error) {
	kind := common.Kind(err)
	msg := err.Error()
	if kind == "internal" {
		msg = common.ErrorInternal.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(HTTPStatus(err), ErrorResponse{Error: ErrorBody{Kind: kind, Message: msg}})
}
