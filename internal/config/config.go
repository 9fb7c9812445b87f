// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// RedisAddr is the Redis host:port used for sessions, revocations and the profile cache.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the Redis AUTH password; empty for no auth.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the Redis logical database number.
	RedisDB int `mapstructure:"REDIS_DB"`

	// JWTSecretKey is the HMAC signing key, base64 encoded, at least 32 bytes decoded.
	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`
	// JWTIssuer is the iss claim stamped on every token.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "24h"). Must exceed JWT_ACCESS_TTL.
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// ProfileCacheTTL is the lifetime of cached profile snapshots (e.g. "60m").
	ProfileCacheTTL string `mapstructure:"PROFILE_CACHE_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// KafkaBrokers is a comma-separated list of broker addresses (e.g. "localhost:9092").
	// Empty disables both audit emission and the roster worker.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditTopic is the Kafka topic audit events are published to.
	AuditTopic string `mapstructure:"AUDIT_TOPIC"`
	// RosterRequestTopic is the topic the roster worker consumes lookup requests from.
	RosterRequestTopic string `mapstructure:"ROSTER_REQUEST_TOPIC"`
	// RosterResponseTopic is the topic the roster worker publishes matches to.
	RosterResponseTopic string `mapstructure:"ROSTER_RESPONSE_TOPIC"`
	// RosterGroupID is the consumer group ID for the roster worker.
	RosterGroupID string `mapstructure:"ROSTER_GROUP_ID"`

	// OTLPEndpoint is the OTLP gRPC collector address; empty disables tracing.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ISSUER", "token-authority")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "24h")
	v.SetDefault("PROFILE_CACHE_TTL", "60m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_TOPIC", "auth-audit")
	v.SetDefault("ROSTER_REQUEST_TOPIC", "user.request")
	v.SetDefault("ROSTER_RESPONSE_TOPIC", "user.response")
	v.SetDefault("ROSTER_GROUP_ID", "token-authority-roster")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("config: REDIS_ADDR must be set")
	}
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("config: JWT_SECRET_KEY must be set")
	}
	if cfg.AccessTTL() >= cfg.RefreshTTL() {
		return nil, errors.New("config: JWT_REFRESH_TTL must exceed JWT_ACCESS_TTL")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// CacheTTL parses ProfileCacheTTL as a time.Duration. Returns 60m if unset or invalid.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.ProfileCacheTTL)
	if err != nil || d <= 0 {
		return 60 * time.Minute
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide whether Kafka-backed features are enabled (non-empty list).
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
