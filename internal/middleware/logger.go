package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/monitor"
	"marketplace/pkg/log"
)

// Logger request logging middleware; the level follows the response status
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		statusCode := c.Writer.Status()

		fields := map[string]interface{}{
			"status":     statusCode,
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"latency":    time.Since(start),
		}
		if userID, ok := GetUserID(c); ok {
			fields["user_id"] = userID
		}
		if traceID := monitor.TraceID(c.Request.Context()); traceID != "" {
			fields["trace_id"] = traceID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			log.WithFields(fields).Error("Server error")
		case statusCode >= 400:
			log.WithFields(fields).Warn("Client error")
		default:
			log.WithFields(fields).Info("Request completed")
		}
	}
}
