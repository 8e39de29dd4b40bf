package handler

import (
	"github.com/gin-gonic/gin"

	"marketplace/internal/model"
	"marketplace/internal/service/bidding"
	"marketplace/pkg/utils"
)

// ResponseHandler bid handler
type ResponseHandler struct {
	biddingService bidding.BiddingService
}

// NewResponseHandler creates a bid handler
func NewResponseHandler(biddingService bidding.BiddingService) *ResponseHandler {
	return &ResponseHandler{biddingService: biddingService}
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Submit places a bid on the request in the path
func (h *ResponseHandler) Submit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in bidding.SubmitInput
	if !bind(c, &in) {
		return
	}
	in.RequestID = requestID
	in.PerformerUserID = userID

	resp, err := h.biddingService.Submit(c.Request.Context(), in)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.CreatedResponse(c, resp)
}

// ListForRequest lists bids on one of the caller's requests
func (h *ResponseHandler) ListForRequest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	list, err := h.biddingService.ListForRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, list)
}

// ListMine lists the caller's bids
func (h *ResponseHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, size := page(c)

	list, total, err := h.biddingService.ListMine(c.Request.Context(), userID, p, size)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessPageResponse(c, list, total, p, size)
}

// SetStatus moves a bid to the status in the body
func (h *ResponseHandler) SetStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setStatusRequest
	if !bind(c, &req) {
		return
	}
	status, valid := model.ParseResponseStatus(req.Status)
	if !valid {
		utils.Fail(c, utils.ErrInvalidTransition.WithMessage("unknown response status: "+req.Status))
		return
	}

	resp, err := h.biddingService.SetStatus(c.Request.Context(), id, status, userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, resp)
}

// Accept accepts a bid and returns the opened conversation
func (h *ResponseHandler) Accept(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.biddingService.Accept(c.Request.Context(), id, userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, result)
}

// Reject rejects a bid
func (h *ResponseHandler) Reject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.biddingService.Reject(c.Request.Context(), id, userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, resp)
}
