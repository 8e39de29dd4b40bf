package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"marketplace/pkg/log"
)

// NATSConfig holds NATS connection configuration
type NATSConfig struct {
	URL        string `mapstructure:"url"`
	Token      string `mapstructure:"token"`
	QueueGroup string `mapstructure:"queue_group"`

	// RetryOnFailedConnect returns a reconnecting connection when no server answers
	RetryOnFailedConnect bool `mapstructure:"retry_on_failed_connect"`
}

// NATSQueue delivers each topic through a NATS queue group, so concurrent
// consumers across processes share the work.
type NATSQueue struct {
	conn  *nats.Conn
	group string
	subs  map[string]*nats.Subscription
	mu    sync.Mutex
}

// NewNATSQueue connects to the NATS server in cfg
func NewNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	if cfg.URL == "" {
		return nil, ErrInvalidConfiguration
	}

	opts := []nats.Option{
		nats.Name("marketplace"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithFields(map[string]interface{}{
				"error": fmt.Sprint(err),
			}).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	if cfg.RetryOnFailedConnect {
		opts = append(opts, nats.RetryOnFailedConnect(true))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	group := cfg.QueueGroup
	if group == "" {
		group = "marketplace-workers"
	}

	return &NATSQueue{
		conn:  nc,
		group: group,
		subs:  make(map[string]*nats.Subscription),
	}, nil
}

// Publish publishes a message to a subject
func (q *NATSQueue) Publish(ctx context.Context, topic string, message []byte) error {
	if q.conn.IsClosed() {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.conn.Publish(topic, message)
}

// Consume pulls the next message delivered to this process's queue subscription
func (q *NATSQueue) Consume(ctx context.Context, topic string) ([]byte, error) {
	sub, err := q.subscription(topic)
	if err != nil {
		return nil, err
	}

	msg, err := sub.NextMsgWithContext(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nats.ErrConnectionClosed || err == nats.ErrBadSubscription {
			return nil, ErrQueueClosed
		}
		return nil, err
	}
	return msg.Data, nil
}

func (q *NATSQueue) subscription(topic string) (*nats.Subscription, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn.IsClosed() {
		return nil, ErrQueueClosed
	}
	if sub, ok := q.subs[topic]; ok {
		return sub, nil
	}

	sub, err := q.conn.QueueSubscribeSync(topic, q.group)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	q.subs[topic] = sub
	return sub, nil
}

// Health checks the health of the queue
func (q *NATSQueue) Health() error {
	if !q.conn.IsConnected() {
		return ErrConnectionFailed
	}
	return nil
}

// Close drains subscriptions and closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn.IsClosed() {
		return nil
	}
	for topic, sub := range q.subs {
		_ = sub.Unsubscribe()
		delete(q.subs, topic)
	}
	q.conn.Close()
	return nil
}
