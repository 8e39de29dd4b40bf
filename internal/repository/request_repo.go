package repository

import (
	"context"

	"gorm.io/gorm"

	"marketplace/internal/model"
)

// RequestRepository request repository interface
type RequestRepository interface {
	// Create request
	Create(ctx context.Context, request *model.Request) error

	// GetByID gets request by ID
	GetByID(ctx context.Context, id string) (*model.Request, error)

	// ListByClient lists a client's requests, newest first
	ListByClient(ctx context.Context, clientID string, page, pageSize int) ([]*model.Request, int64, error)

	// ListByStatus lists requests in a status, newest first
	ListByStatus(ctx context.Context, status model.RequestStatus, page, pageSize int) ([]*model.Request, int64, error)

	// TransitionStatus moves the request to `to` only if its current status is in `from`
	TransitionStatus(ctx context.Context, id string, from []model.RequestStatus, to model.RequestStatus) error
}

// requestRepository request repository implementation
type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a request repository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// Create creates a request
func (r *requestRepository) Create(ctx context.Context, request *model.Request) error {
	return translateError(r.db.WithContext(ctx).Create(request).Error)
}

// GetByID gets a request by ID
func (r *requestRepository) GetByID(ctx context.Context, id string) (*model.Request, error) {
	var request model.Request
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, translateError(err)
	}
	return &request, nil
}

// ListByClient lists requests of a client
func (r *requestRepository) ListByClient(ctx context.Context, clientID string, page, pageSize int) ([]*model.Request, int64, error) {
	return r.list(r.db.WithContext(ctx).Model(&model.Request{}).Where("client_id = ?", clientID), page, pageSize)
}

// ListByStatus lists requests by status
func (r *requestRepository) ListByStatus(ctx context.Context, status model.RequestStatus, page, pageSize int) ([]*model.Request, int64, error) {
	return r.list(r.db.WithContext(ctx).Model(&model.Request{}).Where("status = ?", status), page, pageSize)
}

func (r *requestRepository) list(db *gorm.DB, page, pageSize int) ([]*model.Request, int64, error) {
	var requests []*model.Request
	var total int64

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(Offset(page, pageSize)).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&requests).Error

	return requests, total, err
}

// TransitionStatus compare-and-set on request status
func (r *requestRepository) TransitionStatus(ctx context.Context, id string, from []model.RequestStatus, to model.RequestStatus) error {
	return transitionRequest(r.db.WithContext(ctx), id, from, to)
}

func transitionRequest(db *gorm.DB, id string, from []model.RequestStatus, to model.RequestStatus) error {
	result := db.Model(&model.Request{}).
		Where("id = ?", id).
		Where("status IN ?", from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return missingOrConflict(db, &model.Request{}, id)
	}
	return nil
}

// missingOrConflict explains a conditional update that matched nothing
func missingOrConflict(db *gorm.DB, table interface{}, id string) error {
	var count int64
	if err := db.Model(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return ErrStatusConflict
}
