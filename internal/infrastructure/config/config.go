package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Sync        SyncConfig
	Shopify     ShopifyConfig
	Webhook     WebhookConfig
	Fulfillment FulfillmentConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// SyncConfig holds queue and worker configuration
type SyncConfig struct {
	// ProcessorEnabled gates the background queue processor loop
	ProcessorEnabled bool
	// BatchSize bounds how many pending items one dispatch claims
	BatchSize int
	// PollInterval is the processor poll period
	PollInterval time.Duration
	// PageSize is the per-invocation fetch size
	PageSize int
	// MaxRetries caps requeues per queue item
	MaxRetries int
	// BackoffBase and BackoffCap bound the retry delay
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// StaleAfter is the heartbeat age past which a processing item is
	// considered abandoned and requeued
	StaleAfter time.Duration
}

// ShopifyConfig holds platform API client configuration
type ShopifyConfig struct {
	// APIVersion selects the Admin API version path
	APIVersion string
	// Timeout bounds a single HTTP request
	Timeout time.Duration
	// MaxAttempts is the per-call retry ceiling
	MaxAttempts int
	// ThrottleThreshold is the call-limit usage fraction above which the
	// client proactively sleeps
	ThrottleThreshold float64
	// ThrottleWait is the proactive sleep duration
	ThrottleWait time.Duration
	// RetryAfterMargin is added to server-supplied Retry-After waits
	RetryAfterMargin time.Duration
	// TransportRetryDelay is the fixed wait after transport-level failures
	TransportRetryDelay time.Duration
}

// WebhookConfig holds webhook receiver configuration
type WebhookConfig struct {
	// DedupeTTL is how long delivery IDs are remembered
	DedupeTTL time.Duration
	// MaxBodySize bounds the raw webhook body read for HMAC verification
	MaxBodySize int64
}

// FulfillmentConfig holds the outbound fulfillment service client settings
type FulfillmentConfig struct {
	// BaseURL is the fulfillment service endpoint; empty disables the client
	BaseURL string
	// APIKey authenticates outbound calls
	APIKey string
	// Timeout bounds a single RPC
	Timeout time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CHANNELSYNC_ prefix (e.g., CHANNELSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CHANNELSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			ProcessorEnabled: v.GetBool("sync.processor_enabled"),
			BatchSize:        v.GetInt("sync.batch_size"),
			PollInterval:     v.GetDuration("sync.poll_interval"),
			PageSize:         v.GetInt("sync.page_size"),
			MaxRetries:       v.GetInt("sync.max_retries"),
			BackoffBase:      v.GetDuration("sync.backoff_base"),
			BackoffCap:       v.GetDuration("sync.backoff_cap"),
			StaleAfter:       v.GetDuration("sync.stale_after"),
		},
		Shopify: ShopifyConfig{
			APIVersion:          v.GetString("shopify.api_version"),
			Timeout:             v.GetDuration("shopify.timeout"),
			MaxAttempts:         v.GetInt("shopify.max_attempts"),
			ThrottleThreshold:   v.GetFloat64("shopify.throttle_threshold"),
			ThrottleWait:        v.GetDuration("shopify.throttle_wait"),
			RetryAfterMargin:    v.GetDuration("shopify.retry_after_margin"),
			TransportRetryDelay: v.GetDuration("shopify.transport_retry_delay"),
		},
		Webhook: WebhookConfig{
			DedupeTTL:   v.GetDuration("webhook.dedupe_ttl"),
			MaxBodySize: v.GetInt64("webhook.max_body_size"),
		},
		Fulfillment: FulfillmentConfig{
			BaseURL: v.GetString("fulfillment.base_url"),
			APIKey:  v.GetString("fulfillment.api_key"),
			Timeout: v.GetDuration("fulfillment.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channel-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "channel_sync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 5
	}
	if cfg.Sync.PollInterval == 0 {
		cfg.Sync.PollInterval = 10 * time.Second
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 250
	}
	if cfg.Sync.MaxRetries == 0 {
		cfg.Sync.MaxRetries = 3
	}
	if cfg.Sync.BackoffBase == 0 {
		cfg.Sync.BackoffBase = 2 * time.Second
	}
	if cfg.Sync.BackoffCap == 0 {
		cfg.Sync.BackoffCap = 5 * time.Minute
	}
	if cfg.Sync.StaleAfter == 0 {
		cfg.Sync.StaleAfter = 10 * time.Minute
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-10"
	}
	if cfg.Shopify.Timeout == 0 {
		cfg.Shopify.Timeout = 30 * time.Second
	}
	if cfg.Shopify.MaxAttempts == 0 {
		cfg.Shopify.MaxAttempts = 5
	}
	if cfg.Shopify.ThrottleThreshold == 0 {
		cfg.Shopify.ThrottleThreshold = 0.8
	}
	if cfg.Shopify.ThrottleWait == 0 {
		cfg.Shopify.ThrottleWait = time.Second
	}
	if cfg.Shopify.RetryAfterMargin == 0 {
		cfg.Shopify.RetryAfterMargin = 500 * time.Millisecond
	}
	if cfg.Shopify.TransportRetryDelay == 0 {
		cfg.Shopify.TransportRetryDelay = 2 * time.Second
	}
	if cfg.Webhook.DedupeTTL == 0 {
		cfg.Webhook.DedupeTTL = 24 * time.Hour
	}
	if cfg.Webhook.MaxBodySize == 0 {
		cfg.Webhook.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Fulfillment.Timeout == 0 {
		cfg.Fulfillment.Timeout = 10 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Shopify.ThrottleThreshold <= 0 || c.Shopify.ThrottleThreshold > 1 {
		return fmt.Errorf("shopify.throttle_threshold must be in (0, 1], got %f", c.Shopify.ThrottleThreshold)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be positive")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
