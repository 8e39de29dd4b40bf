package profile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"

	"marketplace/internal/model"
	"marketplace/internal/monitor"
	"marketplace/internal/repository"
	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

// ProfileService resolves provider profiles and catalog services
type ProfileService interface {
	// GetProfile returns {owning user, display name}; NotFound when unknown
	GetProfile(ctx context.Context, profileID string) (*model.Profile, error)

	// GetService returns a catalog entry; NotFound when unknown
	GetService(ctx context.Context, serviceID string) (*model.Service, error)
}

// profileService profile service implementation
type profileService struct {
	profiles repository.ProfileRepository
	services repository.ServiceRepository
	cache    *bigcache.BigCache
	metrics  *monitor.MetricsCollector
}

// NewProfileService creates a profile service. A nil cache reads through to storage.
func NewProfileService(
	profiles repository.ProfileRepository,
	services repository.ServiceRepository,
	cache *bigcache.BigCache,
	metrics *monitor.MetricsCollector,
) ProfileService {
	return &profileService{
		profiles: profiles,
		services: services,
		cache:    cache,
		metrics:  metrics,
	}
}

// NewCache builds the profile cache. Profiles are managed outside this
// service, so entries simply expire after ttl.
func NewCache(ctx context.Context, ttl time.Duration, maxSizeMB int) (*bigcache.BigCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl / 2
	cfg.HardMaxCacheSize = maxSizeMB
	cfg.Verbose = false
	return bigcache.New(ctx, cfg)
}

// GetProfile gets a profile, consulting the cache first
func (s *profileService) GetProfile(ctx context.Context, profileID string) (*model.Profile, error) {
	key := "profile:" + profileID

	if s.cache != nil {
		if data, err := s.cache.Get(key); err == nil {
			var p model.Profile
			if err := json.Unmarshal(data, &p); err == nil {
				s.metrics.RecordProfileCache("hit")
				return &p, nil
			}
		}
		s.metrics.RecordProfileCache("miss")
	}

	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, utils.ErrNotFound.WithMessage("profile not found")
		}
		return nil, utils.StorageError(err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			if err := s.cache.Set(key, data); err != nil {
				log.WithFields(map[string]interface{}{
					"profile_id": profileID,
					"error":      err.Error(),
				}).Warn("Failed to cache profile")
			}
		}
	}
	return p, nil
}

// GetService gets a catalog service
func (s *profileService) GetService(ctx context.Context, serviceID string) (*model.Service, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, utils.ErrNotFound.WithMessage("service not found")
		}
		return nil, utils.StorageError(err)
	}
	return svc, nil
}
