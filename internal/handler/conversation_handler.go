package handler

import (
	"github.com/gin-gonic/gin"

	"marketplace/internal/service/conversation"
	"marketplace/pkg/utils"
)

// ConversationHandler conversation handler
type ConversationHandler struct {
	conversationService conversation.ConversationService
}

// NewConversationHandler creates a conversation handler
func NewConversationHandler(conversationService conversation.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// ListMine lists the caller's conversations
func (h *ConversationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, size := page(c)

	list, total, err := h.conversationService.ListMine(c.Request.Context(), userID, p, size)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessPageResponse(c, list, total, p, size)
}

// Get gets a conversation the caller takes part in
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	conv, err := h.conversationService.Get(c.Request.Context(), id, userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, conv)
}
