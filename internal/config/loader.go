package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"marketplace/pkg/log"
)

// EnvPrefix prefixes every environment override, e.g. MARKET_DATABASE_HOST
const EnvPrefix = "MARKET"

var (
	globalMu     sync.RWMutex
	globalConfig *Config
	globalViper  *viper.Viper
)

// LoadConfig loads configuration from a .env file, the YAML config and environment variables.
// Environment variables win over the file.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Warn("Config file not found, using defaults and environment variables")
	} else {
		log.WithField("file", v.ConfigFileUsed()).Info("Using config file")
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	globalMu.Lock()
	globalConfig = config
	globalViper = v
	globalMu.Unlock()

	return config, nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("/etc/marketplace")
	}

	// bools cannot be defaulted after decoding
	v.SetDefault("database.parse_time", true)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("cache.profile.enabled", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	return v
}

// bindEnvKeys registers keys that may only be set through the environment;
// AutomaticEnv alone does not apply to keys absent from the config file.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode",
		"database.driver", "database.host", "database.port", "database.username",
		"database.password", "database.dbname",
		"redis.enabled", "redis.host", "redis.port", "redis.password",
		"queue.driver", "queue.nats.url", "queue.nats.token",
		"log.level", "log.format",
		"security.jwt.secret",
		"marketplace.node_id",
	} {
		_ = v.BindEnv(key)
	}
}

func decode(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// GetConfig returns the global configuration instance
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalConfig == nil {
		panic("Config not loaded. Call LoadConfig first.")
	}
	return globalConfig
}

// ReloadConfig re-reads the file used by the last LoadConfig
func ReloadConfig() error {
	globalMu.RLock()
	v := globalViper
	globalMu.RUnlock()

	if v == nil {
		return fmt.Errorf("config not initialized")
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	config, err := decode(v)
	if err != nil {
		return err
	}

	globalMu.Lock()
	globalConfig = config
	globalMu.Unlock()
	return nil
}

// WatchConfig reloads on file changes and hands the new config to callback.
// An invalid edit is logged and the previous config stays active.
func WatchConfig(callback func(*Config)) {
	globalMu.RLock()
	v := globalViper
	globalMu.RUnlock()

	if v == nil || v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.WithField("file", e.Name).Info("Config file changed")
		if err := ReloadConfig(); err != nil {
			log.WithError(err).Error("Failed to reload config")
			return
		}
		if callback != nil {
			callback(GetConfig())
		}
	})
	v.WatchConfig()
}

// GetEnv returns environment variable value with fallback
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// IsProduction returns true if running in production mode
func IsProduction() bool {
	env := GetEnv(EnvPrefix+"_ENV", "dev")
	return env == "prod" || env == "production"
}
