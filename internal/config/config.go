package config

import (
	"fmt"
	"time"
)

// Config represents the global configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Log          LogConfig          `mapstructure:"log"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	CircuitBreak CircuitBreakConfig `mapstructure:"circuit_break"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Security     SecurityConfig     `mapstructure:"security"`
	Marketplace  MarketplaceConfig  `mapstructure:"marketplace"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxHeaderMB    int           `mapstructure:"max_header_mb"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql, memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	SeedFile        string        `mapstructure:"seed_file"` // profiles and services for the memory driver
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Driver     string        `mapstructure:"driver"` // memory, nats
	BufferSize int           `mapstructure:"buffer_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	NATS       struct {
		URL        string `mapstructure:"url"`
		Token      string `mapstructure:"token"`
		QueueGroup string `mapstructure:"queue_group"`

		// RetryOnFailedConnect starts disconnected instead of failing when the server is down
		RetryOnFailedConnect bool `mapstructure:"retry_on_failed_connect"`
	} `mapstructure:"nats"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig represents tracing configuration
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Bids caps response submissions per user; enforced in Redis when available
	Bids struct {
		Limit  int           `mapstructure:"limit"`
		Window time.Duration `mapstructure:"window"`
	} `mapstructure:"bids"`
	// PerIP in-process token bucket applied to the whole API
	PerIP struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"per_ip"`
}

// CircuitBreakConfig represents circuit breaker configuration
type CircuitBreakConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Profile struct {
		Enabled   bool          `mapstructure:"enabled"`
		TTL       time.Duration `mapstructure:"ttl"`
		MaxSizeMB int           `mapstructure:"max_size_mb"`
	} `mapstructure:"profile"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	JWT struct {
		Secret string        `mapstructure:"secret"`
		Expire time.Duration `mapstructure:"expire"`
		Issuer string        `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	CORS struct {
		Enabled          bool     `mapstructure:"enabled"`
		AllowOrigins     []string `mapstructure:"allow_origins"`
		AllowMethods     []string `mapstructure:"allow_methods"`
		AllowHeaders     []string `mapstructure:"allow_headers"`
		ExposeHeaders    []string `mapstructure:"expose_headers"`
		AllowCredentials bool     `mapstructure:"allow_credentials"`
		MaxAge           int      `mapstructure:"max_age"`
	} `mapstructure:"cors"`
}

// MarketplaceConfig represents matching workflow configuration
type MarketplaceConfig struct {
	NodeID            int64  `mapstructure:"node_id"`
	NotificationTopic string `mapstructure:"notification_topic"`
	CartLock          struct {
		TTL        time.Duration `mapstructure:"ttl"`
		MaxRetries int           `mapstructure:"max_retries"`
		RetryDelay time.Duration `mapstructure:"retry_delay"`
	} `mapstructure:"cart_lock"`
	BidFilter struct {
		ExpectedBids      uint    `mapstructure:"expected_bids"`
		FalsePositiveRate float64 `mapstructure:"false_positive_rate"`
	} `mapstructure:"bid_filter"`
}

// GetAddr returns the server address
func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetDSN returns the database DSN
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s&clientFoundRows=true",
		d.Username, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, d.Loc)
}

// GetAddr returns the Redis address
func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "memory":
	case "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Queue.Driver {
	case "memory":
	case "nats":
		if c.Queue.NATS.URL == "" {
			return fmt.Errorf("nats url is required")
		}
	default:
		return fmt.Errorf("unsupported queue driver: %s", c.Queue.Driver)
	}

	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.Security.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Marketplace.NodeID < 0 || c.Marketplace.NodeID > 1023 {
		return fmt.Errorf("marketplace node_id must be between 0 and 1023")
	}

	return nil
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 5 * time.Second
	}
	if c.Server.MaxHeaderMB == 0 {
		c.Server.MaxHeaderMB = 1
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.Loc == "" {
		c.Database.Loc = "Local"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = 10 * time.Minute
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 50
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Redis.MaxRetries == 0 {
		c.Redis.MaxRetries = 3
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.PoolTimeout == 0 {
		c.Redis.PoolTimeout = 4 * time.Second
	}

	if c.Queue.Driver == "" {
		c.Queue.Driver = "memory"
	}
	if c.Queue.BufferSize == 0 {
		c.Queue.BufferSize = 1000
	}
	if c.Queue.Timeout == 0 {
		c.Queue.Timeout = 2 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "marketplace"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "marketplace"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 0.1
	}

	if c.RateLimit.Bids.Limit == 0 {
		c.RateLimit.Bids.Limit = 30
	}
	if c.RateLimit.Bids.Window == 0 {
		c.RateLimit.Bids.Window = time.Minute
	}
	if c.RateLimit.PerIP.RPS == 0 {
		c.RateLimit.PerIP.RPS = 50
	}
	if c.RateLimit.PerIP.Burst == 0 {
		c.RateLimit.PerIP.Burst = 100
	}

	if c.CircuitBreak.MaxRequests == 0 {
		c.CircuitBreak.MaxRequests = 3
	}
	if c.CircuitBreak.Interval == 0 {
		c.CircuitBreak.Interval = time.Minute
	}
	if c.CircuitBreak.Timeout == 0 {
		c.CircuitBreak.Timeout = 30 * time.Second
	}
	if c.CircuitBreak.ConsecutiveFailures == 0 {
		c.CircuitBreak.ConsecutiveFailures = 5
	}

	if c.Cache.Profile.TTL == 0 {
		c.Cache.Profile.TTL = 5 * time.Minute
	}
	if c.Cache.Profile.MaxSizeMB == 0 {
		c.Cache.Profile.MaxSizeMB = 64
	}

	if c.Security.JWT.Expire == 0 {
		c.Security.JWT.Expire = 2 * time.Hour
	}
	if c.Security.JWT.Issuer == "" {
		c.Security.JWT.Issuer = "marketplace"
	}

	if c.Marketplace.NotificationTopic == "" {
		c.Marketplace.NotificationTopic = "marketplace.notifications"
	}
	if c.Marketplace.CartLock.TTL == 0 {
		c.Marketplace.CartLock.TTL = 3 * time.Second
	}
	if c.Marketplace.CartLock.MaxRetries == 0 {
		c.Marketplace.CartLock.MaxRetries = 5
	}
	if c.Marketplace.CartLock.RetryDelay == 0 {
		c.Marketplace.CartLock.RetryDelay = 20 * time.Millisecond
	}
	if c.Marketplace.BidFilter.ExpectedBids == 0 {
		c.Marketplace.BidFilter.ExpectedBids = 1000000
	}
	if c.Marketplace.BidFilter.FalsePositiveRate == 0 {
		c.Marketplace.BidFilter.FalsePositiveRate = 0.01
	}
}
