package model

import (
	"time"
)

// NotificationMessage notification message for MQ
type NotificationMessage struct {
	EventID    string           `json:"event_id"` // Idempotency key, becomes the notification ID
	UserID     string           `json:"user_id"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Body       string           `json:"body"`
	ActionURL  string           `json:"action_url,omitempty"`
	Data       JSONMap          `json:"data,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
	TraceID    string           `json:"trace_id,omitempty"`
}

// ToNotification builds the row persisted for this message
func (m *NotificationMessage) ToNotification() *Notification {
	return &Notification{
		ID:        m.EventID,
		UserID:    m.UserID,
		Type:      m.Type,
		Title:     m.Title,
		Body:      m.Body,
		ActionURL: m.ActionURL,
		Data:      m.Data,
		CreatedAt: m.OccurredAt,
	}
}
