package queue

import (
	"context"
	"errors"
	"time"
)

// MessageQueue is a point-to-point topic queue. Each published message is
// delivered to exactly one Consume caller.
type MessageQueue interface {
	// Publish publishes a message to a topic
	Publish(ctx context.Context, topic string, message []byte) error
	// Consume blocks until a message is available on topic or ctx is done
	Consume(ctx context.Context, topic string) ([]byte, error)
	// Health checks the health of the queue
	Health() error
	// Close closes the queue connections
	Close() error
}

// Config selects and configures a queue driver
type Config struct {
	Driver     string        `mapstructure:"driver"` // memory, nats
	BufferSize int           `mapstructure:"buffer_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	NATS       NATSConfig    `mapstructure:"nats"`
}

// Common errors
var (
	ErrQueueClosed          = errors.New("queue is closed")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrConnectionFailed     = errors.New("connection failed")
	ErrPublishTimeout       = errors.New("publish timeout")
)

// New builds the queue named by cfg.Driver
func New(cfg Config) (MessageQueue, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryQueue(&MemoryQueueConfig{
			BufferSize: cfg.BufferSize,
			Timeout:    cfg.Timeout,
		}), nil
	case "nats":
		return NewNATSQueue(cfg.NATS)
	default:
		return nil, ErrInvalidConfiguration
	}
}
