package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

// Timeout bounds the request context. Handlers run on the calling goroutine
// and observe the deadline through their context; a handler that gives up
// without answering gets a StorageUnavailable response.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			log.WithFields(map[string]interface{}{
				"path":    c.Request.URL.Path,
				"method":  c.Request.Method,
				"timeout": timeout.String(),
			}).Warn("Request timed out")
			utils.Fail(c, utils.ErrStorageUnavailable.WithMessage("request timed out"))
			c.Abort()
		}
	}
}
