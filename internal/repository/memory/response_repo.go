package memory

import (
	"context"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type responseRepository struct {
	s *Store
}

// NewResponseRepository creates a memory response repository
func NewResponseRepository(s *Store) repository.ResponseRepository {
	return &responseRepository{s: s}
}

func (r *responseRepository) Submit(ctx context.Context, response *model.Response) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[response.RequestID]
	if !ok {
		return repository.ErrRecordNotFound
	}
	if req.request.Status != model.RequestStatusActive {
		return repository.ErrStatusConflict
	}

	key := model.BidKey(response.RequestID, response.ProfileID)
	if _, ok := r.s.responseByBid[key]; ok {
		return repository.ErrDuplicateKey
	}
	if _, ok := r.s.responses[response.ID]; ok {
		return repository.ErrDuplicateKey
	}

	now := r.s.now()
	response.CreatedAt, response.UpdatedAt = now, now
	if response.Status == "" {
		response.Status = model.ResponseStatusPending
	}

	r.s.responses[response.ID] = &responseRow{seq: r.s.nextSeq(), response: *response}
	r.s.responseByBid[key] = response.ID
	req.request.ResponsesCount++
	return nil
}

func (r *responseRepository) GetByID(ctx context.Context, id string) (*model.Response, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.responses[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	response := row.response
	return &response, nil
}

func (r *responseRepository) Exists(ctx context.Context, requestID, profileID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.responseByBid[model.BidKey(requestID, profileID)]
	return ok, nil
}

func (r *responseRepository) ListByRequest(ctx context.Context, requestID string) ([]*model.Response, error) {
	rows := r.collect(func(resp *model.Response) bool { return resp.RequestID == requestID }, false)

	out := make([]*model.Response, 0, len(rows))
	for _, row := range rows {
		response := row.response
		out = append(out, &response)
	}
	return out, nil
}

func (r *responseRepository) ListByPerformer(ctx context.Context, userID string, pg, pageSize int) ([]*model.Response, int64, error) {
	rows := r.collect(func(resp *model.Response) bool { return resp.PerformerUserID == userID }, true)

	var out []*model.Response
	for _, row := range page(rows, pg, pageSize) {
		response := row.response
		out = append(out, &response)
	}
	return out, int64(len(rows)), nil
}

func (r *responseRepository) collect(match func(*model.Response) bool, desc bool) []*responseRow {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*responseRow
	for _, row := range r.s.responses {
		if match(&row.response) {
			rows = append(rows, row)
		}
	}
	sortBySeq(rows, func(r *responseRow) int64 { return r.seq }, desc)
	return rows
}

func (r *responseRepository) TransitionStatus(ctx context.Context, id string, from []model.ResponseStatus, to model.ResponseStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.transitionResponse(id, from, to)
}

func (r *responseRepository) Accept(ctx context.Context, responseID, requestID string, conv *model.Conversation) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// validate every step before mutating so a failure leaves nothing behind
	resp, ok := r.s.responses[responseID]
	if !ok {
		return nil, fmt.Errorf("response %s: %w", responseID, repository.ErrRecordNotFound)
	}
	if !resp.response.Status.CanTransitionTo(model.ResponseStatusAccepted) {
		return nil, fmt.Errorf("response %s: %w", responseID, repository.ErrStatusConflict)
	}
	req, ok := r.s.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", requestID, repository.ErrRecordNotFound)
	}
	if req.request.Status != model.RequestStatusActive {
		return nil, fmt.Errorf("request %s: %w", requestID, repository.ErrStatusConflict)
	}

	now := r.s.now()
	resp.response.Status = model.ResponseStatusAccepted
	resp.response.UpdatedAt = now
	req.request.Status = model.RequestStatusInProgress
	req.request.UpdatedAt = now

	stored := r.s.getOrCreateConversation(conv)
	return &stored, nil
}

func (s *Store) transitionResponse(id string, from []model.ResponseStatus, to model.ResponseStatus) error {
	row, ok := s.responses[id]
	if !ok {
		return repository.ErrRecordNotFound
	}
	for _, status := range from {
		if row.response.Status == status {
			row.response.Status = to
			row.response.UpdatedAt = s.now()
			return nil
		}
	}
	return repository.ErrStatusConflict
}
