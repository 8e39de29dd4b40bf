package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/config"
	"marketplace/internal/middleware"
	"marketplace/internal/monitor"
	"marketplace/internal/service/bidding"
	"marketplace/internal/service/cart"
	"marketplace/internal/service/conversation"
	"marketplace/internal/service/notify"
	"marketplace/internal/service/request"
	"marketplace/pkg/limiter"
)

// Services the application services exposed over HTTP
type Services struct {
	Cart         cart.CartService
	Request      request.RequestService
	Bidding      bidding.BiddingService
	Conversation conversation.ConversationService
	Notification notify.NotificationService
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// RouterOptions cross-cutting router settings
type RouterOptions struct {
	Config         *config.Config
	TokenValidator middleware.TokenValidator
	// Metrics and Tracer are optional
	Metrics *monitor.MetricsCollector
	Tracer  *monitor.Tracer
	// BidLimiter caps bid submissions per user; optional
	BidLimiter   limiter.RateLimiter
	HealthChecks map[string]HealthCheck
}

// NewRouter builds the HTTP router
func NewRouter(svc Services, opts RouterOptions) *gin.Engine {
	cfg := opts.Config

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	if cfg.Security.CORS.Enabled {
		router.Use(middleware.CORS(cfg.Security))
	}
	if opts.Tracer != nil {
		router.Use(opts.Tracer.GinMiddleware())
	}
	if opts.Metrics != nil {
		router.Use(opts.Metrics.GinMiddleware())
	}

	router.GET("/health", healthCheck(opts.HealthChecks))
	router.GET("/ping", ping)
	if opts.Metrics != nil && cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(opts.Metrics.Handler()))
	}

	carts := NewCartHandler(svc.Cart)
	requests := NewRequestHandler(svc.Request)
	responses := NewResponseHandler(svc.Bidding)
	conversations := NewConversationHandler(svc.Conversation)
	notifications := NewNotificationHandler(svc.Notification)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.IPRateLimit(cfg.RateLimit.PerIP.RPS, cfg.RateLimit.PerIP.Burst))
	}
	v1.Use(middleware.Auth(opts.TokenValidator))
	{
		v1.GET("/cart", carts.GetCart)
		v1.POST("/cart/items", carts.AddItem)
		v1.PATCH("/cart/items/:id", carts.UpdateQuantity)
		v1.DELETE("/cart/items/:id", carts.RemoveItem)
		v1.DELETE("/cart", carts.ClearCart)

		v1.POST("/requests", requests.Publish)
		v1.POST("/requests/from-cart", requests.PublishFromCart)
		v1.GET("/requests", requests.ListMine)
		v1.GET("/requests/open", requests.ListOpen)
		v1.GET("/requests/:id", requests.Get)
		v1.POST("/requests/:id/cancel", requests.Cancel)
		v1.POST("/requests/:id/close", requests.Close)

		submit := []gin.HandlerFunc{responses.Submit}
		if cfg.RateLimit.Enabled && opts.BidLimiter != nil {
			submit = append([]gin.HandlerFunc{middleware.UserRateLimit(opts.BidLimiter, "bids")}, submit...)
		}
		v1.POST("/requests/:id/responses", submit...)
		v1.GET("/requests/:id/responses", responses.ListForRequest)

		v1.GET("/responses/mine", responses.ListMine)
		v1.PATCH("/responses/:id/status", responses.SetStatus)
		v1.POST("/responses/:id/accept", responses.Accept)
		v1.POST("/responses/:id/reject", responses.Reject)

		v1.GET("/conversations", conversations.ListMine)
		v1.GET("/conversations/:id", conversations.Get)

		v1.GET("/notifications", notifications.ListMine)
		v1.POST("/notifications/:id/read", notifications.MarkRead)
	}

	return router
}

func healthCheck(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		services := make(map[string]interface{}, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				healthy = false
				services[name] = map[string]interface{}{"healthy": false, "error": err.Error()}
				continue
			}
			services[name] = map[string]interface{}{"healthy": true}
		}

		health := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"services":  services,
		}
		if !healthy {
			health["status"] = "error"
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
		c.JSON(http.StatusOK, health)
	}
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}
