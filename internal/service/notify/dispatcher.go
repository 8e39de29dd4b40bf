package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/model"
	"marketplace/internal/monitor"
	"marketplace/pkg/log"
	"marketplace/pkg/queue"
)

const publishTimeout = 2 * time.Second

// Dispatcher fire-and-forget delivery of notifications
type Dispatcher interface {
	// Notify hands msg to the delivery pipeline. It never fails the caller:
	// problems are logged and counted.
	Notify(ctx context.Context, msg *model.NotificationMessage)
}

// QueueDispatcher publishes notification messages to a queue topic
type QueueDispatcher struct {
	queue   queue.MessageQueue
	topic   string
	metrics *monitor.MetricsCollector
}

// NewQueueDispatcher creates a dispatcher publishing to topic
func NewQueueDispatcher(q queue.MessageQueue, topic string, metrics *monitor.MetricsCollector) *QueueDispatcher {
	return &QueueDispatcher{
		queue:   q,
		topic:   topic,
		metrics: metrics,
	}
}

// Notify publishes msg. The publish outlives the caller's cancellation since
// it runs after the triggering transaction has committed.
func (d *QueueDispatcher) Notify(ctx context.Context, msg *model.NotificationMessage) {
	if msg.EventID == "" {
		msg.EventID = uuid.NewString()
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now()
	}
	if msg.TraceID == "" {
		msg.TraceID = monitor.TraceID(ctx)
	}

	fields := map[string]interface{}{
		"event_id": msg.EventID,
		"user_id":  msg.UserID,
		"type":     msg.Type,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		d.metrics.RecordNotification("dispatch", "error")
		fields["error"] = err.Error()
		log.FromContext(ctx).WithFields(fields).Error("Failed to encode notification")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := d.queue.Publish(pubCtx, d.topic, data); err != nil {
		d.metrics.RecordNotification("dispatch", "error")
		fields["error"] = err.Error()
		log.FromContext(ctx).WithFields(fields).Warn("Failed to dispatch notification")
		return
	}

	d.metrics.RecordNotification("dispatch", "ok")
	log.FromContext(ctx).WithFields(fields).Debug("Notification dispatched")
}
