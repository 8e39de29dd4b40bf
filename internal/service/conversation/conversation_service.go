package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/model"
	"marketplace/internal/monitor"
	"marketplace/internal/repository"
	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

// ConversationService conversation registry interface
type ConversationService interface {
	// GetOrCreate returns the single conversation of the unordered pair,
	// creating it on first use
	GetOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error)

	// Get returns a conversation the user participates in
	Get(ctx context.Context, id, userID string) (*model.Conversation, error)

	// ListMine lists the user's conversations by recent activity
	ListMine(ctx context.Context, userID string, page, pageSize int) ([]*model.Conversation, int64, error)

	// Touch records activity on a conversation
	Touch(ctx context.Context, id, userID string, at time.Time) error
}

// New builds an unsaved conversation for the canonical pair of userA and userB
func New(userA, userB string, now time.Time) (*model.Conversation, error) {
	if userA == userB {
		return nil, utils.ErrSelfConversation
	}
	p1, p2 := model.CanonicalPair(userA, userB)
	return &model.Conversation{
		ID:             uuid.NewString(),
		Participant1ID: p1,
		Participant2ID: p2,
		LastMessageAt:  now,
	}, nil
}

// conversationService conversation service implementation
type conversationService struct {
	repo    repository.ConversationRepository
	metrics *monitor.MetricsCollector
}

// NewConversationService creates a conversation service
func NewConversationService(repo repository.ConversationRepository, metrics *monitor.MetricsCollector) ConversationService {
	return &conversationService{repo: repo, metrics: metrics}
}

// GetOrCreate gets or creates a conversation
func (s *conversationService) GetOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	conv, err := New(userA, userB, time.Now())
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.GetOrCreate(ctx, conv)
	if err != nil {
		s.metrics.RecordConversation("error")
		return nil, utils.StorageError(err)
	}

	if stored.ID == conv.ID {
		s.metrics.RecordConversation("created")
		log.FromContext(ctx).WithFields(map[string]interface{}{
			"conversation_id": stored.ID,
			"participant_1":   stored.Participant1ID,
			"participant_2":   stored.Participant2ID,
		}).Info("Conversation created")
	} else {
		s.metrics.RecordConversation("existing")
	}
	return stored, nil
}

// Get gets a conversation
func (s *conversationService) Get(ctx context.Context, id, userID string) (*model.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, utils.ErrNotFound.WithMessage("conversation not found")
		}
		return nil, utils.StorageError(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, utils.ErrForbidden
	}
	return conv, nil
}

// ListMine lists conversations of a user
func (s *conversationService) ListMine(ctx context.Context, userID string, page, pageSize int) ([]*model.Conversation, int64, error) {
	list, total, err := s.repo.ListByParticipant(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, utils.StorageError(err)
	}
	return list, total, nil
}

// Touch bumps last_message_at
func (s *conversationService) Touch(ctx context.Context, id, userID string, at time.Time) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Touch(ctx, id, at); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return utils.ErrNotFound.WithMessage("conversation not found")
		}
		return utils.StorageError(err)
	}
	return nil
}
