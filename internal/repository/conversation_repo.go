package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/model"
)

// ConversationRepository conversation repository interface
type ConversationRepository interface {
	// GetOrCreate inserts conv unless its canonical pair already exists, then
	// returns the stored row for the pair. Concurrent callers converge on one row.
	GetOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)

	// GetByID gets a conversation by ID
	GetByID(ctx context.Context, id string) (*model.Conversation, error)

	// GetByPair gets the conversation of a canonical pair
	GetByPair(ctx context.Context, participant1ID, participant2ID string) (*model.Conversation, error)

	// ListByParticipant lists a user's conversations, most recent activity first
	ListByParticipant(ctx context.Context, userID string, page, pageSize int) ([]*model.Conversation, int64, error)

	// Touch bumps last_message_at
	Touch(ctx context.Context, id string, at time.Time) error
}

// conversationRepository conversation repository implementation
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// GetOrCreate gets or creates the conversation for a pair
func (r *conversationRepository) GetOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	return getOrCreateConversation(r.db.WithContext(ctx), conv)
}

// getOrCreateConversation insert-ignore on idx_conversation_pair followed by a
// locking re-read, so a concurrent winner's committed row is always visible.
func getOrCreateConversation(db *gorm.DB, conv *model.Conversation) (*model.Conversation, error) {
	conv.Participant1ID, conv.Participant2ID = model.CanonicalPair(conv.Participant1ID, conv.Participant2ID)

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(conv).Error; err != nil {
		return nil, translateError(err)
	}

	var stored model.Conversation
	err := db.Clauses(clause.Locking{Strength: "SHARE"}).
		Where("participant_1_id = ? AND participant_2_id = ?", conv.Participant1ID, conv.Participant2ID).
		First(&stored).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &stored, nil
}

// GetByID gets a conversation by ID
func (r *conversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, translateError(err)
	}
	return &conv, nil
}

// GetByPair gets a conversation by participants
func (r *conversationRepository) GetByPair(ctx context.Context, participant1ID, participant2ID string) (*model.Conversation, error) {
	p1, p2 := model.CanonicalPair(participant1ID, participant2ID)

	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_1_id = ? AND participant_2_id = ?", p1, p2).
		First(&conv).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &conv, nil
}

// ListByParticipant lists conversations of a user
func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string, page, pageSize int) ([]*model.Conversation, int64, error) {
	var convs []*model.Conversation
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("participant_1_id = ? OR participant_2_id = ?", userID, userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(Offset(page, pageSize)).
		Limit(pageSize).
		Order("last_message_at DESC").
		Find(&convs).Error

	return convs, total, err
}

// Touch updates last_message_at
func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// an unchanged timestamp also reports zero affected rows
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.Conversation{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrRecordNotFound
		}
	}
	return nil
}
