package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue in-process queue backed by one buffered channel per topic
type MemoryQueue struct {
	topics map[string]chan []byte
	config *MemoryQueueConfig
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// MemoryQueueConfig memory queue configuration
type MemoryQueueConfig struct {
	BufferSize int           `json:"buffer_size"`
	Timeout    time.Duration `json:"timeout"`
}

// NewMemoryQueue creates a new memory queue instance
func NewMemoryQueue(config *MemoryQueueConfig) *MemoryQueue {
	cfg := MemoryQueueConfig{BufferSize: 1000, Timeout: 5 * time.Second}
	if config != nil {
		if config.BufferSize > 0 {
			cfg.BufferSize = config.BufferSize
		}
		if config.Timeout > 0 {
			cfg.Timeout = config.Timeout
		}
	}

	return &MemoryQueue{
		topics: make(map[string]chan []byte),
		config: &cfg,
		done:   make(chan struct{}),
	}
}

func (mq *MemoryQueue) topic(name string) (chan []byte, error) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return nil, ErrQueueClosed
	}

	ch, ok := mq.topics[name]
	if !ok {
		ch = make(chan []byte, mq.config.BufferSize)
		mq.topics[name] = ch
	}
	return ch, nil
}

// Publish enqueues message, waiting up to the configured timeout when the topic buffer is full
func (mq *MemoryQueue) Publish(ctx context.Context, topic string, message []byte) error {
	ch, err := mq.topic(topic)
	if err != nil {
		return err
	}

	timer := time.NewTimer(mq.config.Timeout)
	defer timer.Stop()

	select {
	case ch <- message:
		return nil
	case <-mq.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPublishTimeout
	}
}

// Consume waits for the next message on topic
func (mq *MemoryQueue) Consume(ctx context.Context, topic string) ([]byte, error) {
	ch, err := mq.topic(topic)
	if err != nil {
		return nil, err
	}

	select {
	case message := <-ch:
		return message, nil
	case <-mq.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of buffered messages on topic
func (mq *MemoryQueue) Len(topic string) int {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return len(mq.topics[topic])
}

// Health checks the health of the queue
func (mq *MemoryQueue) Health() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return ErrQueueClosed
	}
	return nil
}

// Close wakes every blocked caller; buffered messages are dropped
func (mq *MemoryQueue) Close() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return nil
	}
	mq.closed = true
	close(mq.done)
	return nil
}
