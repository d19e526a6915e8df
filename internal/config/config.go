// Package config defines the global configuration structure for the notifier
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved from the OS environment, with a .env file as fallback.
// Any missing required value or invalid format causes startup to fail
// immediately (fail fast).
package config

import (
	"time"

	"notifier/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the notifier service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"notifier"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Dispatch  DispatchConfig

	// Build Metadata (injected via ldflags, not env)
	Build BuildInfo
}

// ServerConfig holds HTTP server tuning parameters.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"` // Detect dead connections during failover
}

// RedisConfig holds the Redis connection used by the rate limiter.
type RedisConfig struct {
	URL SecretString `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

// RateLimitConfig holds per-client API rate limiting parameters.
type RateLimitConfig struct {
	Enabled           bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerWindow int           `envconfig:"RATE_LIMIT_REQUESTS" default:"120"`
	Window            time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DispatchConfig holds settings for post-commit event dispatch.
type DispatchConfig struct {
	Timeout        time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"5s"`
	MaxConcurrency int           `envconfig:"DISPATCH_MAX_CONCURRENCY" default:"8"`

	// Circuit breaker settings applied per subscriber.
	BreakerMaxRequests uint32        `envconfig:"DISPATCH_BREAKER_MAX_REQUESTS" default:"3"`
	BreakerInterval    time.Duration `envconfig:"DISPATCH_BREAKER_INTERVAL" default:"60s"`
	BreakerTimeout     time.Duration `envconfig:"DISPATCH_BREAKER_TIMEOUT" default:"30s"`
}

// BuildInfo carries compile-time build metadata for diagnostics.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into the Config struct.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

// IsProduction reports whether the service runs in the prod environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod"
}
