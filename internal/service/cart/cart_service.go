package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"marketplace/internal/model"
	"marketplace/internal/monitor"
	"marketplace/internal/repository"
	"marketplace/internal/service/profile"
	"marketplace/pkg/lock"
	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

// AddItemInput a service selection to stage
type AddItemInput struct {
	ServiceID  string `json:"service_id" binding:"required,uuid"`
	ProviderID string `json:"provider_id" binding:"required,uuid"`
	Quantity   int    `json:"quantity"`
}

// CartService cart service interface
type CartService interface {
	// AddItem inserts the service or increments its quantity. Fails with
	// ProviderConflict when the cart already holds another provider's services.
	AddItem(ctx context.Context, clientID string, in AddItemInput) (*model.CartItem, error)

	// UpdateQuantity overwrites the quantity of one of the client's items
	UpdateQuantity(ctx context.Context, clientID, itemID string, quantity int) (*model.CartItem, error)

	// RemoveItem deletes one item; idempotent
	RemoveItem(ctx context.Context, clientID, itemID string) error

	// ClearCart deletes every item; idempotent
	ClearCart(ctx context.Context, clientID string) error

	// GetCart returns the cart with its derived totals
	GetCart(ctx context.Context, clientID string) (*model.Cart, error)
}

// cartService cart service implementation
type cartService struct {
	repo     repository.CartRepository
	profiles profile.ProfileService
	locker   *lock.Locker
	metrics  *monitor.MetricsCollector
}

// NewCartService creates a cart service. locker may be nil, in which case
// concurrent adds by one client are not serialized.
func NewCartService(
	repo repository.CartRepository,
	profiles profile.ProfileService,
	locker *lock.Locker,
	metrics *monitor.MetricsCollector,
) CartService {
	return &cartService{
		repo:     repo,
		profiles: profiles,
		locker:   locker,
		metrics:  metrics,
	}
}

// AddItem adds a service to the cart
func (s *cartService) AddItem(ctx context.Context, clientID string, in AddItemInput) (item *model.CartItem, err error) {
	defer func() { s.metrics.RecordCartOperation("add", resultLabel(err)) }()

	if in.Quantity < 1 {
		return nil, utils.ErrInvalidQuantity
	}

	svc, err := s.profiles.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.ProfileID != in.ProviderID {
		return nil, utils.ErrInvalidParam.WithMessage("service is not offered by this provider")
	}

	unlock, err := s.lockCart(ctx, clientID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// always decide on the stored cart, never on a caller's copy
	items, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, utils.StorageError(err)
	}
	for _, existing := range items {
		if existing.ProviderID != in.ProviderID {
			return nil, s.providerConflict(ctx, existing.ProviderID)
		}
	}

	item, err = s.repo.AddOrIncrement(ctx, &model.CartItem{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		ServiceID:  in.ServiceID,
		ProviderID: in.ProviderID,
		Quantity:   in.Quantity,
		UnitPrice:  svc.Price,
	})
	if err != nil {
		return nil, utils.StorageError(err)
	}

	log.FromContext(ctx).WithFields(map[string]interface{}{
		"client_id":  clientID,
		"service_id": in.ServiceID,
		"quantity":   item.Quantity,
	}).Debug("Cart item added")
	return item, nil
}

// lockCart serializes adds per client when a locker is configured. Redis
// being unreachable degrades to the unserialized check.
func (s *cartService) lockCart(ctx context.Context, clientID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	lk, err := s.locker.Obtain(ctx, clientID)
	if err != nil {
		if errors.Is(err, lock.ErrLockFailed) {
			return nil, utils.ErrStorageUnavailable.WithMessage("cart is busy, please retry")
		}
		log.FromContext(ctx).WithFields(map[string]interface{}{
			"client_id": clientID,
			"error":     err.Error(),
		}).Warn("Cart lock unavailable, continuing without it")
		return func() {}, nil
	}

	return func() {
		if err := lk.Unlock(context.WithoutCancel(ctx)); err != nil {
			log.FromContext(ctx).WithFields(map[string]interface{}{
				"key":   lk.Key(),
				"error": err.Error(),
			}).Warn("Failed to release cart lock")
		}
	}, nil
}

func (s *cartService) providerConflict(ctx context.Context, providerID string) error {
	data := map[string]string{"provider_id": providerID}
	if p, err := s.profiles.GetProfile(ctx, providerID); err == nil {
		data["provider_name"] = p.DisplayName
	} else {
		log.FromContext(ctx).WithFields(map[string]interface{}{
			"provider_id": providerID,
			"error":       err.Error(),
		}).Warn("Failed to resolve conflicting provider name")
	}
	return utils.ErrProviderConflict.WithData(data)
}

// UpdateQuantity updates quantity of a cart item
func (s *cartService) UpdateQuantity(ctx context.Context, clientID, itemID string, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, utils.ErrInvalidQuantity
	}

	item, err := s.ownedItem(ctx, clientID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateQuantity(ctx, itemID, clientID, quantity); err != nil {
		return nil, utils.StorageError(err)
	}
	item.Quantity = quantity

	s.metrics.RecordCartOperation("update", "ok")
	return item, nil
}

func (s *cartService) ownedItem(ctx context.Context, clientID, itemID string) (*model.CartItem, error) {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, utils.ErrNotFound.WithMessage("cart item not found")
		}
		return nil, utils.StorageError(err)
	}
	if item.ClientID != clientID {
		return nil, utils.ErrForbidden
	}
	return item, nil
}

// RemoveItem removes a cart item
func (s *cartService) RemoveItem(ctx context.Context, clientID, itemID string) error {
	if err := s.repo.Delete(ctx, itemID, clientID); err != nil {
		return utils.StorageError(err)
	}
	s.metrics.RecordCartOperation("remove", "ok")
	return nil
}

// ClearCart clears the cart
func (s *cartService) ClearCart(ctx context.Context, clientID string) error {
	if err := s.repo.DeleteByClient(ctx, clientID); err != nil {
		return utils.StorageError(err)
	}
	s.metrics.RecordCartOperation("clear", "ok")
	return nil
}

// GetCart gets the cart
func (s *cartService) GetCart(ctx context.Context, clientID string) (*model.Cart, error) {
	items, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, utils.StorageError(err)
	}
	return model.NewCart(clientID, items), nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, utils.ErrProviderConflict):
		return "provider_conflict"
	case errors.Is(err, utils.ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return monitor.Result(err)
	}
}
