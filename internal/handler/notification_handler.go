package handler

import (
	"github.com/gin-gonic/gin"

	"marketplace/internal/service/notify"
	"marketplace/pkg/utils"
)

// NotificationHandler notification inbox handler
type NotificationHandler struct {
	notificationService notify.NotificationService
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(notificationService notify.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListMine lists the caller's notifications; ?unread=true filters read ones out
func (h *NotificationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, size := page(c)
	unreadOnly := c.Query("unread") == "true"

	list, total, err := h.notificationService.ListMine(c.Request.Context(), userID, unreadOnly, p, size)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessPageResponse(c, list, total, p, size)
}

// MarkRead marks a notification read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, userID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, nil)
}
