package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace/internal/monitor"
	"marketplace/internal/utils"
	"marketplace/pkg/log"
	pkgutils "marketplace/pkg/utils"
)

const (
	// AuthorizationHeader authorization header name
	AuthorizationHeader = "Authorization"
	// BearerPrefix bearer prefix
	BearerPrefix = "Bearer "
	// UserIDKey key of the user ID in the gin context
	UserIDKey = "user_id"
)

// TokenValidator resolves a bearer token to a user ID
type TokenValidator func(token string) (string, error)

// AuthConfig authentication configuration
type AuthConfig struct {
	TokenValidator TokenValidator
	// SkipPaths paths served without authentication
	SkipPaths []string
}

// JWTValidator validates tokens issued for this service
func JWTValidator(m *utils.JWTManager) TokenValidator {
	return func(token string) (string, error) {
		claims, err := m.ValidateToken(token)
		if err != nil {
			return "", err
		}
		return claims.UserID(), nil
	}
}

// Auth authentication middleware
func Auth(validator TokenValidator) gin.HandlerFunc {
	return AuthWithConfig(AuthConfig{TokenValidator: validator})
}

// AuthWithConfig authentication middleware with configuration
func AuthWithConfig(config AuthConfig) gin.HandlerFunc {
	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			unauthenticated(c, "missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			unauthenticated(c, "invalid authorization header format")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if token == "" {
			unauthenticated(c, "missing token")
			return
		}

		userID, err := config.TokenValidator(token)
		if err != nil || userID == "" {
			unauthenticated(c, "invalid token")
			return
		}

		c.Set(UserIDKey, userID)
		ctx := c.Request.Context()
		entry := log.WithField("user_id", userID)
		if traceID := monitor.TraceID(ctx); traceID != "" {
			entry = entry.WithField("trace_id", traceID)
		}
		c.Request = c.Request.WithContext(log.NewContext(ctx, entry))
		c.Next()
	}
}

func unauthenticated(c *gin.Context, message string) {
	pkgutils.Error(c, pkgutils.CodeUnauthenticated, message)
	c.Abort()
}

// GetUserID returns the authenticated user ID
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(UserIDKey)
	return userID, userID != ""
}
