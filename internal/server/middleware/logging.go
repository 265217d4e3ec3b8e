package middleware

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request, at a level chosen by status.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		ctx := c.Request.Context()
		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error(ctx, "request", args...)
		case status >= http.StatusBadRequest:
			log.Warn(ctx, "request", args...)
		default:
			log.Info(ctx, "request", args...)
		}
	}
}
