package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"marketplace/internal/config"
	"marketplace/internal/consumer"
	"marketplace/internal/database"
	"marketplace/internal/handler"
	"marketplace/internal/middleware"
	"marketplace/internal/monitor"
	"marketplace/internal/redis"
	"marketplace/internal/repository"
	"marketplace/internal/repository/memory"
	"marketplace/internal/service/bidding"
	"marketplace/internal/service/cart"
	"marketplace/internal/service/conversation"
	"marketplace/internal/service/notify"
	"marketplace/internal/service/profile"
	"marketplace/internal/service/request"
	"marketplace/internal/utils"
	"marketplace/pkg/bloom"
	"marketplace/pkg/breaker"
	"marketplace/pkg/limiter"
	"marketplace/pkg/lock"
	"marketplace/pkg/log"
	"marketplace/pkg/queue"
	"marketplace/pkg/snowflake"
	pkgutils "marketplace/pkg/utils"
)

// repositories groups the storage backends for one driver
type repositories struct {
	profiles      repository.ProfileRepository
	services      repository.ServiceRepository
	carts         repository.CartRepository
	requests      repository.RequestRepository
	responses     repository.ResponseRepository
	conversations repository.ConversationRepository
	notifications repository.NotificationRepository
}

func main() {
	cfg, err := config.LoadConfig(os.Getenv("MARKET_CONFIG"))
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}

	if err := log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize logger")
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	pkgutils.RegisterCustomValidators()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metrics *monitor.MetricsCollector
	if cfg.Metrics.Enabled {
		metrics = monitor.NewMetricsCollector(cfg.Metrics.Namespace)
	}

	environment := "development"
	if config.IsProduction() {
		environment = "production"
	}
	tracer, err := monitor.NewTracer(cfg.Tracing, environment)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize tracer")
	}

	healthChecks := make(map[string]handler.HealthCheck)

	// storage
	var repos repositories
	switch cfg.Database.Driver {
	case "memory":
		store := memory.NewStore()
		if cfg.Database.SeedFile != "" {
			if err := memory.LoadSeed(store, cfg.Database.SeedFile); err != nil {
				log.WithFields(map[string]interface{}{
					"error": err.Error(),
					"file":  cfg.Database.SeedFile,
				}).Fatal("Failed to seed memory store")
			}
		}
		repos = memoryRepositories(store)
		metrics.StartSystemMetricsCollection(ctx, 15*time.Second, nil)
		log.Warn("Using in-memory storage, data is lost on restart")
	default:
		if err := database.Init(cfg); err != nil {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to initialize database")
		}
		defer database.Close()

		db := database.GetDB()
		if cfg.Database.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				log.WithFields(map[string]interface{}{
					"error": err.Error(),
				}).Fatal("Failed to migrate database")
			}
		} else if missing, err := database.CheckTables(db); err != nil || len(missing) > 0 {
			log.WithFields(map[string]interface{}{
				"error":   fmt.Sprint(err),
				"missing": missing,
			}).Fatal("Database schema is incomplete, enable auto_migrate or apply migrations")
		}
		if sqlDB, err := db.DB(); err == nil {
			metrics.StartSystemMetricsCollection(ctx, 15*time.Second, sqlDB.Stats)
		}
		repos = repositories{
			profiles:      repository.NewProfileRepository(db),
			services:      repository.NewServiceRepository(db),
			carts:         repository.NewCartRepository(db),
			requests:      repository.NewRequestRepository(db),
			responses:     repository.NewResponseRepository(db),
			conversations: repository.NewConversationRepository(db),
			notifications: repository.NewNotificationRepository(db),
		}
		healthChecks["database"] = database.Health
	}

	// redis backs the cart lock and the per-user bid limiter
	var (
		cartLocker *lock.Locker
		bidLimiter limiter.RateLimiter
	)
	if cfg.Redis.Enabled {
		if err := redis.Init(cfg); err != nil {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to initialize redis")
		}
		defer redis.Close()

		client := redis.GetClient()
		cartLocker = lock.NewLocker(client, "marketplace:lock:cart:",
			cfg.Marketplace.CartLock.TTL,
			cfg.Marketplace.CartLock.MaxRetries,
			cfg.Marketplace.CartLock.RetryDelay)
		bidLimiter = limiter.NewSlidingWindowLimiter(client, cfg.RateLimit.Bids.Limit, cfg.RateLimit.Bids.Window)
		healthChecks["redis"] = redis.Health
	} else {
		bids := cfg.RateLimit.Bids
		bidLimiter = limiter.NewTokenBucketLimiter(rate.Every(bids.Window/time.Duration(bids.Limit)), bids.Limit)
	}

	messageQueue, err := queue.New(queue.Config{
		Driver:     cfg.Queue.Driver,
		BufferSize: cfg.Queue.BufferSize,
		Timeout:    cfg.Queue.Timeout,
		NATS: queue.NATSConfig{
			URL:                  cfg.Queue.NATS.URL,
			Token:                cfg.Queue.NATS.Token,
			QueueGroup:           cfg.Queue.NATS.QueueGroup,
			RetryOnFailedConnect: cfg.Queue.NATS.RetryOnFailedConnect,
		},
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error":  err.Error(),
			"driver": cfg.Queue.Driver,
		}).Fatal("Failed to initialize message queue")
	}
	healthChecks["queue"] = func(context.Context) error { return messageQueue.Health() }

	idGenerator, err := snowflake.NewIDGenerator(cfg.Marketplace.NodeID)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create ID generator")
	}

	var profileCache *bigcache.BigCache
	if cfg.Cache.Profile.Enabled {
		profileCache, err = profile.NewCache(ctx, cfg.Cache.Profile.TTL, cfg.Cache.Profile.MaxSizeMB)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to create profile cache")
		}
		defer profileCache.Close()
	}

	bidFilter := bloom.New(cfg.Marketplace.BidFilter.ExpectedBids, cfg.Marketplace.BidFilter.FalsePositiveRate)

	// services
	topic := cfg.Marketplace.NotificationTopic
	dispatcher := notify.NewQueueDispatcher(messageQueue, topic, metrics)
	profileService := profile.NewProfileService(repos.profiles, repos.services, profileCache, metrics)
	cartService := cart.NewCartService(repos.carts, profileService, cartLocker, metrics)
	requestService := request.NewRequestService(repos.requests, cartService, profileService, idGenerator, metrics)
	biddingService := bidding.NewBiddingService(repos.responses, repos.requests, profileService, dispatcher, bidFilter, metrics)
	conversationService := conversation.NewConversationService(repos.conversations, metrics)
	notificationService := notify.NewNotificationService(repos.notifications)

	persistBreaker := breaker.NewCircuitBreaker("notification-store", consumer.PersistBreakerConfig(breaker.Config{
		MaxRequests: cfg.CircuitBreak.MaxRequests,
		Interval:    cfg.CircuitBreak.Interval,
		Timeout:     cfg.CircuitBreak.Timeout,
		ReadyToTrip: func(counts breaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.CircuitBreak.ConsecutiveFailures
		},
	}))
	notificationConsumer := consumer.NewNotificationConsumer(notificationService, messageQueue, topic, persistBreaker, metrics)
	notificationConsumer.Start(ctx)

	jwtManager := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, cfg.Security.JWT.Expire)

	router := handler.NewRouter(handler.Services{
		Cart:         cartService,
		Request:      requestService,
		Bidding:      biddingService,
		Conversation: conversationService,
		Notification: notificationService,
	}, handler.RouterOptions{
		Config:         cfg,
		TokenValidator: middleware.JWTValidator(jwtManager),
		Metrics:        metrics,
		Tracer:         tracer,
		BidLimiter:     bidLimiter,
		HealthChecks:   healthChecks,
	})

	config.WatchConfig(func(next *config.Config) {
		level, err := logrus.ParseLevel(next.Log.Level)
		if err != nil {
			log.WithField("level", next.Log.Level).Warn("Ignoring invalid log level")
			return
		}
		log.GetLogger().SetLevel(level)
		log.WithField("level", level.String()).Info("Log level updated")
	})

	server := &http.Server{
		Addr:           cfg.Server.GetAddr(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderMB << 20,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr":     server.Addr,
			"database": cfg.Database.Driver,
			"queue":    cfg.Queue.Driver,
			"redis":    cfg.Redis.Enabled,
		}).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Server forced to shutdown")
	}

	cancel()
	notificationConsumer.Stop()

	if err := messageQueue.Close(); err != nil {
		log.WithError(err).Warn("Failed to close message queue")
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush traces")
	}

	log.Info("Server exited")
}

func memoryRepositories(store *memory.Store) repositories {
	return repositories{
		profiles:      memory.NewProfileRepository(store),
		services:      memory.NewServiceRepository(store),
		carts:         memory.NewCartRepository(store),
		requests:      memory.NewRequestRepository(store),
		responses:     memory.NewResponseRepository(store),
		conversations: memory.NewConversationRepository(store),
		notifications: memory.NewNotificationRepository(store),
	}
}
