package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"marketplace/pkg/limiter"
	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

// RateLimitConfig rate limiting middleware configuration
type RateLimitConfig struct {
	Limiter limiter.RateLimiter
	// KeyFunc derives the bucket key; an empty key skips limiting
	KeyFunc func(c *gin.Context) string
	// Scope labels log lines
	Scope string
}

// RateLimitWithConfig rate limiting middleware with configuration. Limiter
// errors let the request through.
func RateLimitWithConfig(config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, err := config.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"scope": config.Scope,
				"key":   key,
				"error": err.Error(),
			}).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			log.WithFields(map[string]interface{}{
				"scope":  config.Scope,
				"key":    key,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("Rate limit exceeded")
			c.Header("Retry-After", "1")
			utils.Fail(c, utils.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}

// IPRateLimit per-client-IP token bucket
func IPRateLimit(rps float64, burst int) gin.HandlerFunc {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter: limiter.NewTokenBucketLimiter(rate.Limit(rps), burst),
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
		Scope:   "ip",
	})
}

// UserRateLimit limits the authenticated user with l; must run after Auth
func UserRateLimit(l limiter.RateLimiter, scope string) gin.HandlerFunc {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter: l,
		KeyFunc: func(c *gin.Context) string {
			userID, ok := GetUserID(c)
			if !ok {
				return ""
			}
			return scope + ":" + userID
		},
		Scope: scope,
	})
}
