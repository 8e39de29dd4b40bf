package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/monitor"
	"marketplace/internal/service/notify"
	"marketplace/pkg/breaker"
	"marketplace/pkg/log"
	"marketplace/pkg/queue"
	"marketplace/pkg/utils"
)

const (
	consumeTimeout = 5 * time.Second
	retryBackoff   = time.Second
)

// lengther is implemented by queues that can report their backlog
type lengther interface {
	Len(topic string) int
}

// NotificationConsumer persists dispatched notifications
type NotificationConsumer struct {
	service      notify.NotificationService
	messageQueue queue.MessageQueue
	topic        string
	breaker      *breaker.CircuitBreaker
	metrics      *monitor.MetricsCollector
	started      atomic.Bool
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewNotificationConsumer creates a notification consumer. cb guards the
// persistence call and may be nil.
func NewNotificationConsumer(
	service notify.NotificationService,
	messageQueue queue.MessageQueue,
	topic string,
	cb *breaker.CircuitBreaker,
	metrics *monitor.MetricsCollector,
) *NotificationConsumer {
	return &NotificationConsumer{
		service:      service,
		messageQueue: messageQueue,
		topic:        topic,
		breaker:      cb,
		metrics:      metrics,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// PersistBreakerConfig treats invalid messages as successes so poison
// messages cannot open the circuit
func PersistBreakerConfig(base breaker.Config) breaker.Config {
	base.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, utils.ErrInvalidParam)
	}
	base.OnStateChange = func(name string, from, to breaker.State) {
		log.WithFields(map[string]interface{}{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("Circuit breaker state changed")
	}
	return base
}

// Start starts the consumer
func (c *NotificationConsumer) Start(ctx context.Context) {
	log.WithFields(map[string]interface{}{
		"topic": c.topic,
	}).Info("Starting notification consumer")
	c.started.Store(true)

	go func() {
		defer close(c.doneCh)
		for {
			select {
			case <-c.stopCh:
				log.Info("Notification consumer stopped")
				return
			case <-ctx.Done():
				log.Info("Notification consumer context cancelled")
				return
			default:
				consumeCtx, cancel := context.WithTimeout(ctx, consumeTimeout)
				data, err := c.messageQueue.Consume(consumeCtx, c.topic)
				cancel()

				if err != nil {
					if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
						continue
					}
					if errors.Is(err, queue.ErrQueueClosed) {
						log.Info("Notification queue closed, consumer exiting")
						return
					}
					log.WithFields(map[string]interface{}{
						"error": err.Error(),
					}).Error("Failed to consume notification message")
					c.sleep(ctx, retryBackoff)
					continue
				}

				c.handle(ctx, data)
				if l, ok := c.messageQueue.(lengther); ok {
					c.metrics.UpdateQueueSize(c.topic, l.Len(c.topic))
				}
			}
		}
	}()
}

// Stop stops the consumer and waits for the loop to exit
func (c *NotificationConsumer) Stop() {
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	if c.started.Load() {
		<-c.doneCh
	}
}

func (c *NotificationConsumer) handle(ctx context.Context, data []byte) {
	var msg model.NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.metrics.RecordNotification("persist", "invalid")
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Dropping malformed notification message")
		return
	}

	persist := func() error { return c.service.Persist(ctx, &msg) }

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, persist)
	} else {
		err = persist()
	}

	fields := map[string]interface{}{
		"event_id": msg.EventID,
		"user_id":  msg.UserID,
		"type":     msg.Type,
		"trace_id": msg.TraceID,
	}
	if err != nil {
		fields["error"] = err.Error()
		if breaker.IsCircuitBreakerError(err) {
			c.metrics.RecordNotification("persist", "rejected")
			log.WithFields(fields).Warn("Notification store circuit open, dropping notification")
			return
		}
		c.metrics.RecordNotification("persist", "error")
		log.WithFields(fields).Error("Failed to persist notification")
		return
	}
	c.metrics.RecordNotification("persist", "ok")
	log.WithFields(fields).Debug("Notification persisted")
}

func (c *NotificationConsumer) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-c.stopCh:
	case <-ctx.Done():
	}
}
