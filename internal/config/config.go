// Package config provides configuration management for the nic-dns client.
// It loads settings from environment variables with sensible defaults and
// validates them before any network call is made.
//
// Environment Variables:
//
// NIC.RU application and account:
//   - NIC_APP_LOGIN: OAuth client id issued for the application (required)
//   - NIC_APP_PASSWORD: OAuth client secret (required)
//   - NIC_USERNAME: account login, usually "NNNNNN/NIC-D"
//   - NIC_PASSWORD: account password (administrative or technical)
//   - NIC_BASE_URL: API base (default: https://api.nic.ru)
//   - NIC_SCOPE: requested OAuth scope (default: .+:/dns-master/.+)
//   - NIC_OFFLINE: requested token lifetime in seconds (default: 3600)
//   - NIC_DEFAULT_SERVICE: service used when a command omits one
//   - NIC_DEFAULT_ZONE: zone used when a command omits one
//
// Token persistence:
//   - TOKEN_STORE: file, sqlite, postgres, redis or none (default: file)
//   - TOKEN_FILE: JSON token cache path (default: ./nic_token.json)
//   - TOKEN_KEY: key the token is stored under in sqlite/postgres/redis (default: nic_token)
//   - TOKEN_ENCRYPTION_KEY: encrypts persisted tokens when set (at least 32 characters)
//   - TOKEN_EXPIRY_SKEW: renew this long before expiry (default: 5s)
//   - DATABASE_PATH: SQLite database file (default: ./nic_dns.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER,
//     POSTGRES_PASSWORD, POSTGRES_SSL_MODE: PostgreSQL connection
//   - REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB, REDIS_POOL_SIZE: Redis connection
//
// Transport:
//   - HTTP_TIMEOUT: per-request timeout (default: 30s)
//   - RATE_LIMIT_RPS: API requests per second, 0 disables (default: 5)
//   - RATE_LIMIT_BURST: burst size (default: 10)
//   - CACHE_TTL: lifetime of cached service and zone listings, 0 disables (default: 60s)
//
// Misc:
//   - KEEPALIVE_SCHEDULE: cron spec for the keepalive command (default: @every 30m)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_FILE: write logs to this file instead of stderr
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"nic-dns/internal/common/validation"
)

// Token store kinds accepted by TOKEN_STORE.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreNone     = "none"
)

// Config holds all configuration values for the client. It is loaded with
// Load and must be checked with Validate before use.
type Config struct {
	// NIC.RU credentials and endpoints
	AppLogin       string
	AppPassword    string
	Username       string
	Password       string
	BaseURL        string
	Scope          string
	Offline        int
	DefaultService string
	DefaultZone    string

	// Token persistence
	TokenStore    string
	TokenFile     string
	TokenKey      string
	EncryptionKey string
	ExpirySkew    time.Duration
	DatabasePath  string

	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Transport
	HTTPTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CacheTTL       time.Duration

	KeepaliveSchedule string
	LogLevel          string
	LogFile           string
}

// Load creates a new Config with values taken from environment variables,
// falling back to defaults for unset ones. Malformed numbers and durations
// also fall back to defaults; Validate catches values that parse but make no
// sense.
func Load() *Config {
	return &Config{
		AppLogin:       getEnv("NIC_APP_LOGIN", ""),
		AppPassword:    getEnv("NIC_APP_PASSWORD", ""),
		Username:       getEnv("NIC_USERNAME", ""),
		Password:       getEnv("NIC_PASSWORD", ""),
		BaseURL:        strings.TrimRight(getEnv("NIC_BASE_URL", "https://api.nic.ru"), "/"),
		Scope:          getEnv("NIC_SCOPE", ".+:/dns-master/.+"),
		Offline:        getIntEnv("NIC_OFFLINE", 3600),
		DefaultService: getEnv("NIC_DEFAULT_SERVICE", ""),
		DefaultZone:    getEnv("NIC_DEFAULT_ZONE", ""),

		TokenStore:    strings.ToLower(getEnv("TOKEN_STORE", StoreFile)),
		TokenFile:     getEnv("TOKEN_FILE", "./nic_token.json"),
		TokenKey:      getEnv("TOKEN_KEY", "nic_token"),
		EncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
		ExpirySkew:    getDurationEnv("TOKEN_EXPIRY_SKEW", 5*time.Second),
		DatabasePath:  getEnv("DATABASE_PATH", "./nic_dns.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getIntEnv("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "nic_dns"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPoolSize: getIntEnv("REDIS_POOL_SIZE", 10),

		HTTPTimeout:    getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		RateLimitRPS:   getFloatEnv("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 10),
		CacheTTL:       getDurationEnv("CACHE_TTL", time.Minute),

		KeepaliveSchedule: getEnv("KEEPALIVE_SCHEDULE", "@every 30m"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks that required values are present and all values are usable.
func (c *Config) Validate() error {
	if c.AppLogin == "" || c.AppPassword == "" {
		return fmt.Errorf("NIC_APP_LOGIN and NIC_APP_PASSWORD are required")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("NIC_BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}

	if c.Offline < 0 {
		return fmt.Errorf("NIC_OFFLINE must not be negative")
	}

	switch c.TokenStore {
	case StoreFile:
		if c.TokenFile == "" {
			return fmt.Errorf("TOKEN_FILE is required when TOKEN_STORE=file")
		}
	case StoreSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when TOKEN_STORE=sqlite")
		}
	case StorePostgres:
		if c.PostgresHost == "" || c.PostgresDB == "" || c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_HOST, POSTGRES_DB and POSTGRES_USER are required when TOKEN_STORE=postgres")
		}
	case StoreRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when TOKEN_STORE=redis")
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return fmt.Errorf("REDIS_DB must be between 0 and 15")
		}
	case StoreNone:
	default:
		return fmt.Errorf("unknown TOKEN_STORE %q", c.TokenStore)
	}

	if c.EncryptionKey != "" && len(c.EncryptionKey) < 32 {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be at least 32 characters")
	}

	if c.ExpirySkew < 0 {
		return fmt.Errorf("TOKEN_EXPIRY_SKEW must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0 and RATE_LIMIT_BURST >= 1 when limiting")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	if err := validation.ValidateNamedVar(c.KeepaliveSchedule, "KEEPALIVE_SCHEDULE", "omitempty,cron_expression"); err != nil {
		return err
	}

	return nil
}

// HasUserCredentials reports whether an account login and password are set.
func (c *Config) HasUserCredentials() bool {
	return c.Username != "" && c.Password != ""
}
