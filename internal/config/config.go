// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// devTokenSecret is a fixed signing secret for local development only.
// Validate rejects an empty secret outside development so nothing
// production-facing ever signs tokens with this value.
const devTokenSecret = "citizenapp-dev-secret-do-not-deploy"

// tokenAlgorithms lists the supported HMAC signing algorithms.
var tokenAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Skip startup migrations (test databases manage their own schema)
	SkipMigrations bool `env:"SKIP_MIGRATIONS" envDefault:"false"`

	// Token signing
	TokenSecret          string `env:"TOKEN_SECRET"`
	TokenAlgorithm       string `env:"TOKEN_ALGORITHM" envDefault:"HS256"`
	TokenLifetimeMinutes int    `env:"TOKEN_LIFETIME_MINUTES" envDefault:"30"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesDevTokenSecret reports whether the development fallback secret is in
// effect, so startup can log a loud warning.
func (c *Config) UsesDevTokenSecret() bool {
	return c.TokenSecret == devTokenSecret
}

// TokenLifetime returns the configured token lifetime as a duration.
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks invariants the env tags cannot express.
// An unset TOKEN_SECRET is tolerated only in development, where a fixed
// dev-only secret is substituted; anywhere else it is a startup error.
func (c *Config) Validate() error {
	if !tokenAlgorithms[c.TokenAlgorithm] {
		return fmt.Errorf("unsupported TOKEN_ALGORITHM %q (want HS256, HS384 or HS512)", c.TokenAlgorithm)
	}

	if c.TokenLifetimeMinutes <= 0 {
		return errors.New("TOKEN_LIFETIME_MINUTES must be positive")
	}

	if c.TokenSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("TOKEN_SECRET must be set outside development")
		}
		c.TokenSecret = devTokenSecret
	}

	return nil
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
