package memory

import (
	"context"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type requestRepository struct {
	s *Store
}

// NewRequestRepository creates a memory request repository
func NewRequestRepository(s *Store) repository.RequestRepository {
	return &requestRepository{s: s}
}

func (r *requestRepository) Create(ctx context.Context, request *model.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[request.ID]; ok {
		return repository.ErrDuplicateKey
	}
	for _, row := range r.s.requests {
		if row.request.RequestNo == request.RequestNo {
			return repository.ErrDuplicateKey
		}
	}

	now := r.s.now()
	request.CreatedAt, request.UpdatedAt = now, now
	r.s.requests[request.ID] = &requestRow{seq: r.s.nextSeq(), request: *request}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*model.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	request := row.request
	return &request, nil
}

func (r *requestRepository) ListByClient(ctx context.Context, clientID string, pg, pageSize int) ([]*model.Request, int64, error) {
	return r.list(func(req *model.Request) bool { return req.ClientID == clientID }, pg, pageSize)
}

func (r *requestRepository) ListByStatus(ctx context.Context, status model.RequestStatus, pg, pageSize int) ([]*model.Request, int64, error) {
	return r.list(func(req *model.Request) bool { return req.Status == status }, pg, pageSize)
}

func (r *requestRepository) list(match func(*model.Request) bool, pg, pageSize int) ([]*model.Request, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*requestRow
	for _, row := range r.s.requests {
		if match(&row.request) {
			rows = append(rows, row)
		}
	}
	sortBySeq(rows, func(r *requestRow) int64 { return r.seq }, true)

	var out []*model.Request
	for _, row := range page(rows, pg, pageSize) {
		request := row.request
		out = append(out, &request)
	}
	return out, int64(len(rows)), nil
}

func (r *requestRepository) TransitionStatus(ctx context.Context, id string, from []model.RequestStatus, to model.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.transitionRequest(id, from, to)
}

func (s *Store) transitionRequest(id string, from []model.RequestStatus, to model.RequestStatus) error {
	row, ok := s.requests[id]
	if !ok {
		return repository.ErrRecordNotFound
	}
	for _, status := range from {
		if row.request.Status == status {
			row.request.Status = to
			row.request.UpdatedAt = s.now()
			return nil
		}
	}
	return repository.ErrStatusConflict
}
