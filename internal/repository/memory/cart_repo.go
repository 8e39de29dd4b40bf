package memory

import (
	"context"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type cartRepository struct {
	s *Store
}

// NewCartRepository creates a memory cart repository
func NewCartRepository(s *Store) repository.CartRepository {
	return &cartRepository{s: s}
}

func (r *cartRepository) ListByClient(ctx context.Context, clientID string) ([]model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*cartRow
	for _, row := range r.s.cartItems {
		if row.item.ClientID == clientID {
			rows = append(rows, row)
		}
	}
	sortBySeq(rows, func(r *cartRow) int64 { return r.seq }, false)

	items := make([]model.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item)
	}
	return items, nil
}

func (r *cartRepository) GetByID(ctx context.Context, id string) (*model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.cartItems[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	item := row.item
	return &item, nil
}

func (r *cartRepository) AddOrIncrement(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	key := pairKey(item.ClientID, item.ServiceID)
	if id, ok := r.s.cartByClientService[key]; ok {
		row := r.s.cartItems[id]
		row.item.Quantity += item.Quantity
		row.item.UpdatedAt = now
		stored := row.item
		return &stored, nil
	}

	if _, ok := r.s.cartItems[item.ID]; ok {
		return nil, repository.ErrDuplicateKey
	}

	stored := *item
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.s.cartItems[stored.ID] = &cartRow{seq: r.s.nextSeq(), item: stored}
	r.s.cartByClientService[key] = stored.ID
	return &stored, nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, id, clientID string, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if row, ok := r.s.cartItems[id]; ok && row.item.ClientID == clientID {
		row.item.Quantity = quantity
		row.item.UpdatedAt = r.s.now()
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, id, clientID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if row, ok := r.s.cartItems[id]; ok && row.item.ClientID == clientID {
		r.s.deleteCartRow(row)
	}
	return nil
}

func (r *cartRepository) DeleteByClient(ctx context.Context, clientID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, row := range r.s.cartItems {
		if row.item.ClientID == clientID {
			r.s.deleteCartRow(row)
		}
	}
	return nil
}

func (s *Store) deleteCartRow(row *cartRow) {
	delete(s.cartItems, row.item.ID)
	delete(s.cartByClientService, pairKey(row.item.ClientID, row.item.ServiceID))
}
