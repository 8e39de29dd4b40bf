package memory

import (
	"context"
	"sort"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type conversationRepository struct {
	s *Store
}

// NewConversationRepository creates a memory conversation repository
func NewConversationRepository(s *Store) repository.ConversationRepository {
	return &conversationRepository{s: s}
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := r.s.getOrCreateConversation(conv)
	return &stored, nil
}

func (s *Store) getOrCreateConversation(conv *model.Conversation) model.Conversation {
	conv.Participant1ID, conv.Participant2ID = model.CanonicalPair(conv.Participant1ID, conv.Participant2ID)

	key := pairKey(conv.Participant1ID, conv.Participant2ID)
	if id, ok := s.conversationByPair[key]; ok {
		return s.conversations[id].conv
	}

	now := s.now()
	stored := *conv
	stored.CreatedAt = now
	if stored.LastMessageAt.IsZero() {
		stored.LastMessageAt = now
	}
	s.conversations[stored.ID] = &conversationRow{seq: s.nextSeq(), conv: stored}
	s.conversationByPair[key] = stored.ID
	return stored
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.conversations[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	conv := row.conv
	return &conv, nil
}

func (r *conversationRepository) GetByPair(ctx context.Context, participant1ID, participant2ID string) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.conversationByPair[pairKey(model.CanonicalPair(participant1ID, participant2ID))]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	conv := r.s.conversations[id].conv
	return &conv, nil
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string, pg, pageSize int) ([]*model.Conversation, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*conversationRow
	for _, row := range r.s.conversations {
		if row.conv.HasParticipant(userID) {
			rows = append(rows, row)
		}
	}
	// most recent activity first, newest row breaks ties
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].conv.LastMessageAt, rows[j].conv.LastMessageAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return rows[i].seq > rows[j].seq
	})

	var out []*model.Conversation
	for _, row := range page(rows, pg, pageSize) {
		conv := row.conv
		out = append(out, &conv)
	}
	return out, int64(len(rows)), nil
}

func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.conversations[id]
	if !ok {
		return repository.ErrRecordNotFound
	}
	row.conv.LastMessageAt = at
	return nil
}
