package memory

import (
	"context"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type notificationRepository struct {
	s *Store
}

// NewNotificationRepository creates a memory notification repository
func NewNotificationRepository(s *Store) repository.NotificationRepository {
	return &notificationRepository{s: s}
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notifications[notification.ID]; ok {
		return repository.ErrDuplicateKey
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = r.s.now()
	}
	r.s.notifications[notification.ID] = &notificationRow{seq: r.s.nextSeq(), notification: *notification}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, pg, pageSize int) ([]*model.Notification, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*notificationRow
	for _, row := range r.s.notifications {
		if row.notification.UserID != userID {
			continue
		}
		if unreadOnly && row.notification.Read {
			continue
		}
		rows = append(rows, row)
	}
	sortBySeq(rows, func(r *notificationRow) int64 { return r.seq }, true)

	var out []*model.Notification
	for _, row := range page(rows, pg, pageSize) {
		n := row.notification
		out = append(out, &n)
	}
	return out, int64(len(rows)), nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.notifications[id]
	if !ok || row.notification.UserID != userID {
		return repository.ErrRecordNotFound
	}
	row.notification.Read = true
	return nil
}
