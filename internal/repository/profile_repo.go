package repository

import (
	"context"

	"gorm.io/gorm"

	"marketplace/internal/model"
)

// ProfileRepository read-only access to provider profiles
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

// ServiceRepository read-only access to the service catalog
type ServiceRepository interface {
	GetByID(ctx context.Context, id string) (*model.Service, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, translateError(err)
	}
	return &profile, nil
}

type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a service catalog repository
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) GetByID(ctx context.Context, id string) (*model.Service, error) {
	var service model.Service
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&service).Error; err != nil {
		return nil, translateError(err)
	}
	return &service, nil
}
