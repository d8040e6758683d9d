// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minJWTSecretLen = 32

// Config is the root configuration for the verification service.
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Verification VerificationConfig `mapstructure:"verification"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Cleanup      CleanupConfig      `mapstructure:"cleanup"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig controls the PostgreSQL connection pool.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
	ApplicationName string `mapstructure:"application_name"`
	ConnectTimeout  int    `mapstructure:"connect_timeout"`
	// PoolerCompat switches pgx to the simple query protocol for pooling
	// tiers (pgbouncer in transaction mode) that reject prepared statements.
	PoolerCompat bool `mapstructure:"pooler_compat"`
}

// RedisConfig controls the Redis connection.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds the shared secrets.
type AuthConfig struct {
	// JWTSecret signs bearer tokens. Rotation invalidates every outstanding
	// pending challenge, which is acceptable: they fail validation and the
	// user re-requests.
	JWTSecret      string `mapstructure:"jwt_secret"`
	InternalAPIKey string `mapstructure:"internal_api_key"`
	AdminAPIKey    string `mapstructure:"admin_api_key"`
}

// VerificationConfig controls challenge issuance.
type VerificationConfig struct {
	// BaseURL is the public frontend that collects the wallet signature.
	BaseURL  string        `mapstructure:"base_url"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// RateLimitConfig controls the per-client sliding window.
type RateLimitConfig struct {
	Requests          int           `mapstructure:"requests"`
	Window            time.Duration `mapstructure:"window"`
	BlockDuration     time.Duration `mapstructure:"block_duration"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	TrustForwardedFor bool          `mapstructure:"trust_forwarded_for"`
}

// CleanupConfig controls the background token sweeper.
type CleanupConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

// SentryConfig controls error reporting.
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// Load reads configuration from config.yaml (if present) and VERIFY_*
// environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("VERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes, got %d", minJWTSecretLen, len(c.Auth.JWTSecret))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Verification.TokenTTL <= 0 {
		return fmt.Errorf("verification.token_ttl must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.requests and rate_limit.window must be positive")
	}
	if c.Cleanup.Interval <= 0 || c.Cleanup.Retention <= 0 {
		return fmt.Errorf("cleanup.interval and cleanup.retention must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "sendit")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")
	v.SetDefault("database.application_name", "wallet-verifier")
	v.SetDefault("database.connect_timeout", 10)
	v.SetDefault("database.pooler_compat", false)

	v.SetDefault("database.database_url", "")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Env-only keys need a registered default for AutomaticEnv to
	// surface them during Unmarshal.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.internal_api_key", "")
	v.SetDefault("auth.admin_api_key", "")

	v.SetDefault("verification.base_url", "https://verify.sendit-bot.com")
	v.SetDefault("verification.token_ttl", "10m")

	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window", "60s")
	v.SetDefault("rate_limit.block_duration", "15m")
	v.SetDefault("rate_limit.sweep_interval", "5m")
	v.SetDefault("rate_limit.trust_forwarded_for", false)

	v.SetDefault("cleanup.interval", "30m")
	v.SetDefault("cleanup.retention", "168h")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.traces_sample_rate", 0.1)
}
