package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// NotificationType notification kind
type NotificationType string

// Notification type const
const (
	NotificationResponseNew      NotificationType = "response_new"
	NotificationResponseAccepted NotificationType = "response_accepted"
	NotificationResponseRejected NotificationType = "response_rejected"
)

// JSONMap free-form payload stored as a JSON column
type JSONMap map[string]interface{}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported JSONMap source type")
	}
	return json.Unmarshal(b, m)
}

// Notification advisory message to a user, append-only apart from Read
type Notification struct {
	ID        string           `gorm:"type:char(36);primaryKey;comment:notification ID" json:"id"`
	UserID    string           `gorm:"type:varchar(64);not null;index:idx_notifications_user_read,priority:1;comment:recipient user ID" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(40);not null;comment:notification type" json:"type"`
	Title     string           `gorm:"type:varchar(200);not null;comment:title" json:"title"`
	Body      string           `gorm:"type:varchar(1000);comment:body" json:"body"`
	ActionURL string           `gorm:"type:varchar(255);comment:client-side link" json:"action_url,omitempty"`
	Read      bool             `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_read,priority:2;comment:marked read by recipient" json:"read"`
	Data      JSONMap          `gorm:"type:json;comment:extension data" json:"data,omitempty"`
	CreatedAt time.Time        `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:created at" json:"created_at"`
}

// TableName set name
func (Notification) TableName() string {
	return "notifications"
}
