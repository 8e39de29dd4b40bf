package memory

import (
	"context"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

type profileRepository struct {
	s *Store
}

// NewProfileRepository creates a memory profile repository
func NewProfileRepository(s *Store) repository.ProfileRepository {
	return &profileRepository{s: s}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &p, nil
}

type serviceRepository struct {
	s *Store
}

// NewServiceRepository creates a memory service catalog repository
func NewServiceRepository(s *Store) repository.ServiceRepository {
	return &serviceRepository{s: s}
}

func (r *serviceRepository) GetByID(ctx context.Context, id string) (*model.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	svc, ok := r.s.services[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &svc, nil
}
