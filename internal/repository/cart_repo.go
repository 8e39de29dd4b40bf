package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/model"
)

// CartRepository cart item repository interface
type CartRepository interface {
	// ListByClient returns the client's items, oldest first
	ListByClient(ctx context.Context, clientID string) ([]model.CartItem, error)

	// GetByID gets a cart item by ID
	GetByID(ctx context.Context, id string) (*model.CartItem, error)

	// AddOrIncrement inserts item, or adds item.Quantity to the existing
	// (client, service) row. Returns the stored row.
	AddOrIncrement(ctx context.Context, item *model.CartItem) (*model.CartItem, error)

	// UpdateQuantity overwrites the quantity of the client's item
	UpdateQuantity(ctx context.Context, id, clientID string, quantity int) error

	// Delete removes one of the client's items; missing items are ignored
	Delete(ctx context.Context, id, clientID string) error

	// DeleteByClient empties the client's cart
	DeleteByClient(ctx context.Context, clientID string) error
}

// cartRepository cart repository implementation
type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a cart repository
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// ListByClient lists cart items of a client
func (r *cartRepository) ListByClient(ctx context.Context, clientID string) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// GetByID gets a cart item by ID
func (r *cartRepository) GetByID(ctx context.Context, id string) (*model.CartItem, error) {
	var item model.CartItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

// AddOrIncrement upserts on the (client_id, service_id) unique index
func (r *cartRepository) AddOrIncrement(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	db := r.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}, {Name: "service_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", item.Quantity),
			"updated_at": time.Now(),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, translateError(err)
	}

	var stored model.CartItem
	err = db.Where("client_id = ? AND service_id = ?", item.ClientID, item.ServiceID).
		First(&stored).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &stored, nil
}

// UpdateQuantity updates quantity of a cart item
func (r *cartRepository) UpdateQuantity(ctx context.Context, id, clientID string, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ? AND client_id = ?", id, clientID).
		Update("quantity", quantity).Error
}

// Delete deletes a cart item
func (r *cartRepository) Delete(ctx context.Context, id, clientID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND client_id = ?", id, clientID).
		Delete(&model.CartItem{}).Error
}

// DeleteByClient deletes all cart items of a client
func (r *cartRepository) DeleteByClient(ctx context.Context, clientID string) error {
	return r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Delete(&model.CartItem{}).Error
}
