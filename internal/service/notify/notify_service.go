package notify

import (
	"context"
	"errors"

	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/pkg/utils"
)

// NotificationService notification inbox interface
type NotificationService interface {
	// Persist appends the notification carried by msg. Redelivery of an
	// already stored event is a no-op.
	Persist(ctx context.Context, msg *model.NotificationMessage) error

	// ListMine lists the user's notifications, newest first
	ListMine(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*model.Notification, int64, error)

	// MarkRead marks one of the user's notifications read
	MarkRead(ctx context.Context, id, userID string) error
}

// notificationService notification service implementation
type notificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService creates a notification service
func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Persist stores a notification
func (s *notificationService) Persist(ctx context.Context, msg *model.NotificationMessage) error {
	if msg.EventID == "" || msg.UserID == "" {
		return utils.ErrInvalidParam.WithMessage("notification requires event_id and user_id")
	}

	err := s.repo.Create(ctx, msg.ToNotification())
	if err != nil && !errors.Is(err, repository.ErrDuplicateKey) {
		return utils.StorageError(err)
	}
	return nil
}

// ListMine lists notifications
func (s *notificationService) ListMine(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*model.Notification, int64, error) {
	list, total, err := s.repo.ListByUser(ctx, userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, 0, utils.StorageError(err)
	}
	return list, total, nil
}

// MarkRead marks a notification read
func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return utils.ErrNotFound.WithMessage("notification not found")
		}
		return utils.StorageError(err)
	}
	return nil
}
