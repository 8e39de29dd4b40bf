package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"marketplace/internal/config"
)

// CORS Cross-Origin Resource Sharing middleware built from configuration.
// An empty origin list allows every origin.
func CORS(cfg config.SecurityConfig) gin.HandlerFunc {
	c := cors.DefaultConfig()

	if len(cfg.CORS.AllowOrigins) == 0 || contains(cfg.CORS.AllowOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORS.AllowOrigins
	}
	if len(cfg.CORS.AllowMethods) > 0 {
		c.AllowMethods = cfg.CORS.AllowMethods
	} else {
		c.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	c.AllowHeaders = append([]string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}, cfg.CORS.AllowHeaders...)
	c.ExposeHeaders = cfg.CORS.ExposeHeaders
	// credentials cannot be combined with a wildcard origin
	c.AllowCredentials = cfg.CORS.AllowCredentials && !c.AllowAllOrigins
	if cfg.CORS.MaxAge > 0 {
		c.MaxAge = time.Duration(cfg.CORS.MaxAge) * time.Second
	}

	return cors.New(c)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
