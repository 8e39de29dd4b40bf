package model

import (
	"time"
)

// CartItem one staged service selection in a client's cart
type CartItem struct {
	ID         string    `gorm:"type:char(36);primaryKey;comment:cart item ID" json:"id"`
	ClientID   string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_cart_client_service,priority:1;comment:owning client user ID" json:"client_id"`
	ServiceID  string    `gorm:"type:char(36);not null;uniqueIndex:uk_cart_client_service,priority:2;comment:service ID" json:"service_id"`
	ProviderID string    `gorm:"type:char(36);not null;comment:provider profile ID" json:"provider_id"`
	Quantity   int       `gorm:"type:int;not null;default:1;comment:quantity" json:"quantity"`
	UnitPrice  int64     `gorm:"type:bigint;not null;comment:unit price snapshot (cents)" json:"unit_price"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:created at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:updated at" json:"updated_at"`
}

// TableName set name
func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal quantity times unit price
func (i *CartItem) Subtotal() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

// Cart a client's staged items; all items share one provider
type Cart struct {
	ClientID   string     `json:"client_id"`
	ProviderID string     `json:"provider_id,omitempty"`
	Items      []CartItem `json:"items"`
}

// NewCart builds a cart view over items
func NewCart(clientID string, items []CartItem) *Cart {
	cart := &Cart{ClientID: clientID, Items: items}
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	if len(items) > 0 {
		cart.ProviderID = items[0].ProviderID
	}
	return cart
}

// IsEmpty check cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total sum of quantity times unit price snapshot
func (c *Cart) Total() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].Subtotal()
	}
	return total
}

// ItemsCount sum of quantities
func (c *Cart) ItemsCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
