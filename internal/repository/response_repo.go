package repository

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"marketplace/internal/model"
)

// ResponseRepository response (bid) repository interface
type ResponseRepository interface {
	// Submit inserts a pending response and increments the parent request's
	// responses_count in one transaction. The increment only applies while the
	// request is active: ErrRecordNotFound when the request is gone,
	// ErrStatusConflict when it stopped accepting bids, ErrDuplicateKey when
	// the profile already bid on it.
	Submit(ctx context.Context, response *model.Response) error

	// GetByID gets a response by ID
	GetByID(ctx context.Context, id string) (*model.Response, error)

	// Exists reports whether profileID already bid on requestID
	Exists(ctx context.Context, requestID, profileID string) (bool, error)

	// ListByRequest lists bids on a request, oldest first
	ListByRequest(ctx context.Context, requestID string) ([]*model.Response, error)

	// ListByPerformer lists bids placed by a user's profiles, newest first
	ListByPerformer(ctx context.Context, userID string, page, pageSize int) ([]*model.Response, int64, error)

	// TransitionStatus compare-and-set from any of `from` to `to`
	TransitionStatus(ctx context.Context, id string, from []model.ResponseStatus, to model.ResponseStatus) error

	// Accept atomically marks the response accepted, moves its active request
	// to in_progress, and resolves the conversation for conv's participant
	// pair. Any step failing rolls back all three. Returns the stored conversation.
	Accept(ctx context.Context, responseID, requestID string, conv *model.Conversation) (*model.Conversation, error)
}

// responseRepository response repository implementation
type responseRepository struct {
	db *gorm.DB
}

// NewResponseRepository creates a response repository
func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

// Submit creates a response and bumps the request counter
func (r *responseRepository) Submit(ctx context.Context, response *model.Response) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Request{}).
			Where("id = ?", response.RequestID).
			Where("status = ?", model.RequestStatusActive).
			UpdateColumn("responses_count", gorm.Expr("responses_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return missingOrConflict(tx, &model.Request{}, response.RequestID)
		}

		if err := tx.Create(response).Error; err != nil {
			return translateError(err)
		}
		return nil
	})
}

// GetByID gets a response by ID
func (r *responseRepository) GetByID(ctx context.Context, id string) (*model.Response, error) {
	var response model.Response
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&response).Error; err != nil {
		return nil, translateError(err)
	}
	return &response, nil
}

// Exists checks the (request_id, profile_id) pair
func (r *responseRepository) Exists(ctx context.Context, requestID, profileID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Response{}).
		Where("request_id = ? AND profile_id = ?", requestID, profileID).
		Count(&count).Error
	return count > 0, err
}

// ListByRequest lists responses of a request
func (r *responseRepository) ListByRequest(ctx context.Context, requestID string) ([]*model.Response, error) {
	var responses []*model.Response
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&responses).Error
	return responses, err
}

// ListByPerformer lists responses placed by a user
func (r *responseRepository) ListByPerformer(ctx context.Context, userID string, page, pageSize int) ([]*model.Response, int64, error) {
	var responses []*model.Response
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.Response{}).
		Where("performer_user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(Offset(page, pageSize)).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&responses).Error

	return responses, total, err
}

// TransitionStatus compare-and-set on response status
func (r *responseRepository) TransitionStatus(ctx context.Context, id string, from []model.ResponseStatus, to model.ResponseStatus) error {
	return transitionResponse(r.db.WithContext(ctx), id, from, to)
}

func transitionResponse(db *gorm.DB, id string, from []model.ResponseStatus, to model.ResponseStatus) error {
	result := db.Model(&model.Response{}).
		Where("id = ?", id).
		Where("status IN ?", from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if slices.Contains(from, to) {
			// MySQL counts a write of the current value as zero affected rows
			var count int64
			if err := db.Model(&model.Response{}).
				Where("id = ? AND status = ?", id, to).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
		}
		return missingOrConflict(db, &model.Response{}, id)
	}
	return nil
}

// Accept runs the acceptance transaction
func (r *responseRepository) Accept(ctx context.Context, responseID, requestID string, conv *model.Conversation) (*model.Conversation, error) {
	var stored *model.Conversation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transitionResponse(tx, responseID,
			model.ResponseSourcesFor(model.ResponseStatusAccepted), model.ResponseStatusAccepted); err != nil {
			return fmt.Errorf("response %s: %w", responseID, err)
		}

		if err := transitionRequest(tx, requestID,
			[]model.RequestStatus{model.RequestStatusActive}, model.RequestStatusInProgress); err != nil {
			return fmt.Errorf("request %s: %w", requestID, err)
		}

		c, err := getOrCreateConversation(tx, conv)
		if err != nil {
			return fmt.Errorf("conversation: %w", err)
		}
		stored = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}
