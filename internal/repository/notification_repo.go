package repository

import (
	"context"

	"gorm.io/gorm"

	"marketplace/internal/model"
)

// NotificationRepository notification repository interface
type NotificationRepository interface {
	// Create appends a notification; ErrDuplicateKey when the ID already exists
	Create(ctx context.Context, notification *model.Notification) error

	// ListByUser lists a user's notifications, newest first
	ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*model.Notification, int64, error)

	// MarkRead marks one of the user's notifications read; idempotent
	MarkRead(ctx context.Context, id, userID string) error
}

// notificationRepository notification repository implementation
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create creates a notification
func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	return translateError(r.db.WithContext(ctx).Create(notification).Error)
}

// ListByUser lists notifications of a user
func (r *notificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*model.Notification, int64, error) {
	var notifications []*model.Notification
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(Offset(page, pageSize)).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&notifications).Error

	return notifications, total, err
}

// MarkRead marks a notification as read
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	db := r.db.WithContext(ctx)

	result := db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the value was already set
	var count int64
	if err := db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}
