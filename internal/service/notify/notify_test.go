package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/model"
	"marketplace/internal/repository/memory"
	"marketplace/pkg/queue"
	"marketplace/pkg/utils"
)

const topic = "marketplace.notifications"

func TestQueueDispatcher_Notify(t *testing.T) {
	q := queue.NewMemoryQueue(&queue.MemoryQueueConfig{BufferSize: 4, Timeout: 50 * time.Millisecond})
	defer q.Close()

	d := NewQueueDispatcher(q, topic, nil)

	// a cancelled caller context does not stop delivery
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, &model.NotificationMessage{
		UserID: "performer",
		Type:   model.NotificationResponseAccepted,
		Title:  "Your response was accepted",
		Data:   model.JSONMap{"conversation_id": "c-1"},
	})

	data, err := q.Consume(context.Background(), topic)
	require.NoError(t, err)

	var msg model.NotificationMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.NotEmpty(t, msg.EventID)
	assert.Equal(t, "performer", msg.UserID)
	assert.Equal(t, "c-1", msg.Data["conversation_id"])
	assert.False(t, msg.OccurredAt.IsZero())
}

func TestQueueDispatcher_FailureIsSwallowed(t *testing.T) {
	q := queue.NewMemoryQueue(&queue.MemoryQueueConfig{BufferSize: 1, Timeout: 10 * time.Millisecond})
	d := NewQueueDispatcher(q, topic, nil)

	q.Close()
	assert.NotPanics(t, func() {
		d.Notify(context.Background(), &model.NotificationMessage{UserID: "u", Type: model.NotificationResponseNew})
	})
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewNotificationService(memory.NewNotificationRepository(store))

	msg := &model.NotificationMessage{EventID: "e-1", UserID: "u-1", Type: model.NotificationResponseNew, Title: "New response"}
	require.NoError(t, svc.Persist(ctx, msg))
	require.NoError(t, svc.Persist(ctx, msg))
	assert.ErrorIs(t, svc.Persist(ctx, &model.NotificationMessage{UserID: "u-1"}), utils.ErrInvalidParam)

	list, total, err := svc.ListMine(ctx, "u-1", true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "e-1", list[0].ID)

	require.NoError(t, svc.MarkRead(ctx, "e-1", "u-1"))
	assert.ErrorIs(t, svc.MarkRead(ctx, "e-1", "u-2"), utils.ErrNotFound)

	_, total, err = svc.ListMine(ctx, "u-1", true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
