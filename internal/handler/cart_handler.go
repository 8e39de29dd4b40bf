package handler

import (
	"github.com/gin-gonic/gin"

	"marketplace/internal/model"
	"marketplace/internal/service/cart"
	"marketplace/pkg/utils"
)

// CartHandler cart handler
type CartHandler struct {
	cartService cart.CartService
}

// NewCartHandler creates a cart handler
func NewCartHandler(cartService cart.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

type cartView struct {
	*model.Cart
	Total      int64 `json:"total"`
	ItemsCount int   `json:"items_count"`
}

type addItemRequest struct {
	ServiceID  string `json:"service_id" binding:"required,uuid"`
	ProviderID string `json:"provider_id" binding:"required,uuid"`
	// omitted means one
	Quantity *int `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the caller's cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ct, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, cartView{Cart: ct, Total: ct.Total(), ItemsCount: ct.ItemsCount()})
}

// AddItem adds a service to the cart
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req addItemRequest
	if !bind(c, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := h.cartService.AddItem(c.Request.Context(), userID, cart.AddItemInput{
		ServiceID:  req.ServiceID,
		ProviderID: req.ProviderID,
		Quantity:   quantity,
	})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, item)
}

// UpdateQuantity overwrites an item's quantity
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req quantityRequest
	if !bind(c, &req) {
		return
	}

	item, err := h.cartService.UpdateQuantity(c.Request.Context(), userID, itemID, req.Quantity)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, item)
}

// RemoveItem removes an item
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, nil)
}

// ClearCart empties the cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), userID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.SuccessResponse(c, nil)
}
