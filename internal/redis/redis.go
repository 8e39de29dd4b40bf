package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace/internal/config"
	"marketplace/pkg/log"
)

var (
	Client *redis.Client
)

// NewClient builds a client from configuration without connecting
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	})
}

// Init initializes the Redis client with the given configuration.
func Init(cfg *config.Config) error {
	client := NewClient(cfg.Redis)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect redis: %w", err)
	}

	Client = client
	log.WithField("addr", cfg.Redis.GetAddr()).Info("Redis connected successfully")
	return nil
}

// Close closes the Redis client connection.
func Close() error {
	if Client != nil {
		return Client.Close()
	}
	return nil
}

// GetClient returns the Redis client instance.
func GetClient() *redis.Client {
	return Client
}

// Health checks the health status of the Redis client.
func Health(ctx context.Context) error {
	if Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return Client.Ping(ctx).Err()
}
