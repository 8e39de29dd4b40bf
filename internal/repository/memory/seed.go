package memory

import (
	"fmt"

	"github.com/spf13/viper"

	"marketplace/internal/model"
)

// Seed the catalog rows the memory driver cannot learn from anywhere else
type Seed struct {
	Profiles []struct {
		ID          string `mapstructure:"id"`
		UserID      string `mapstructure:"user_id"`
		DisplayName string `mapstructure:"display_name"`
	} `mapstructure:"profiles"`
	Services []struct {
		ID        string `mapstructure:"id"`
		ProfileID string `mapstructure:"profile_id"`
		Title     string `mapstructure:"title"`
		Price     int64  `mapstructure:"price"`
	} `mapstructure:"services"`
}

// LoadSeed reads profiles and services from a YAML, JSON or TOML file into s.
// Nothing is stored unless the whole file is valid.
func LoadSeed(s *Store, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read seed: %w", err)
	}

	var seed Seed
	if err := v.Unmarshal(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	return s.ApplySeed(seed)
}

// ApplySeed validates seed and registers its rows
func (s *Store) ApplySeed(seed Seed) error {
	profiles := make(map[string]bool, len(seed.Profiles))
	for i, p := range seed.Profiles {
		if p.ID == "" || p.UserID == "" {
			return fmt.Errorf("profile %d: id and user_id are required", i)
		}
		profiles[p.ID] = true
	}
	for i, svc := range seed.Services {
		if svc.ID == "" {
			return fmt.Errorf("service %d: id is required", i)
		}
		if !profiles[svc.ProfileID] {
			return fmt.Errorf("service %s: unknown profile %q", svc.ID, svc.ProfileID)
		}
		if svc.Price < 0 {
			return fmt.Errorf("service %s: negative price", svc.ID)
		}
	}

	for _, p := range seed.Profiles {
		s.SeedProfile(model.Profile{ID: p.ID, UserID: p.UserID, DisplayName: p.DisplayName})
	}
	for _, svc := range seed.Services {
		s.SeedService(model.Service{ID: svc.ID, ProfileID: svc.ProfileID, Title: svc.Title, Price: svc.Price})
	}
	return nil
}
