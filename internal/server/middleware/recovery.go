package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into an internal error response.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "panic recovered",
					"panic", fmt.Sprint(r),
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()))
				if !c.Writer.Written() {
					AbortWithError(c, common.ErrorInternal)
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
