package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Board     BoardConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// BoardConfig holds ride-board specific tuning
type BoardConfig struct {
	BookingTimeoutSeconds int // bound on the booking store round trip
	SnapshotLimit         int // max rides delivered in one snapshot
	IdempotencyTTLHours   int // how long booking keys are remembered in Redis
}

// RateLimitConfig holds request rate limiting configuration. Clients are
// keyed by IP; there is no account tier to distinguish.
type RateLimitConfig struct {
	Enabled       bool
	WindowSeconds int
	DefaultLimit  int
	DefaultBurst  int
	RedisPrefix   string

	// EndpointOverrides maps a route pattern to stricter or looser limits
	EndpointOverrides map[string]EndpointRateLimitConfig
}

// EndpointRateLimitConfig overrides the default limits for one endpoint.
// Zero values fall back to the defaults.
type EndpointRateLimitConfig struct {
	Limit         int
	Burst         int
	WindowSeconds int
}

// Window returns the rate limiting window, defaulting to one minute
func (c *RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "rideboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Board: BoardConfig{
			BookingTimeoutSeconds: getEnvAsInt("BOOKING_TIMEOUT_SECONDS", 5),
			SnapshotLimit:         getEnvAsInt("SNAPSHOT_LIMIT", 500),
			IdempotencyTTLHours:   getEnvAsInt("IDEMPOTENCY_TTL_HOURS", 24),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			DefaultLimit:  getEnvAsInt("RATE_LIMIT_DEFAULT", 120),
			DefaultBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),
			RedisPrefix:   getEnv("RATE_LIMIT_PREFIX", "rl"),
			EndpointOverrides: map[string]EndpointRateLimitConfig{
				// Writes are limited harder than reads
				"POST /api/v1/rides":              {Limit: getEnvAsInt("RATE_LIMIT_POST_RIDES", 20), Burst: 5},
				"POST /api/v1/rides/:id/bookings": {Limit: getEnvAsInt("RATE_LIMIT_BOOKINGS", 30), Burst: 10},
			},
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection URL used by migrations
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
