package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"marketplace/internal/model"
	"marketplace/internal/service/request"
	"marketplace/pkg/utils"
)

// RequestHandler request handler
type RequestHandler struct {
	requestService request.RequestService
}

// NewRequestHandler creates a request handler
func NewRequestHandler(requestService request.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

type publishFromCartRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// Publish publishes a request
func (h *RequestHandler) Publish(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var in request.PublishInput
	if !bind(c, &in) {
		return
	}

	req, err := h.requestService.Publish(c.Request.Context(), userID, in)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.CreatedResponse(c, req)
}

// PublishFromCart publishes a request describing the caller's cart
func (h *RequestHandler) PublishFromCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var in publishFromCartRequest
	if !bind(c, &in) {
		return
	}

	req, err := h.requestService.PublishFromCart(c.Request.Context(), userID, in.Title)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.CreatedResponse(c, req)
}

// Get gets a request
func (h *RequestHandler) Get(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, req)
}

// ListMine lists the caller's requests
func (h *RequestHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, size := page(c)

	list, total, err := h.requestService.ListMine(c.Request.Context(), userID, p, size)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessPageResponse(c, list, total, p, size)
}

// ListOpen lists requests accepting responses
func (h *RequestHandler) ListOpen(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	p, size := page(c)

	list, total, err := h.requestService.ListOpen(c.Request.Context(), p, size)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessPageResponse(c, list, total, p, size)
}

// Cancel cancels a request
func (h *RequestHandler) Cancel(c *gin.Context) {
	h.transition(c, h.requestService.Cancel)
}

// Close closes a request
func (h *RequestHandler) Close(c *gin.Context) {
	h.transition(c, h.requestService.Close)
}

func (h *RequestHandler) transition(c *gin.Context, fn func(ctx context.Context, id, clientID string) (*model.Request, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := fn(c.Request.Context(), id, userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, req)
}
