package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	Service    ServiceConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	GRPC       GRPCConfig
	HTTP       HTTPConfig
	Logging    LoggingConfig
	Cache      CacheConfig
	Payment    PaymentConfig
	Tax        TaxConfig
	Checkout   CheckoutConfig
	Idempotency IdempotencyConfig
	Auth       AuthConfig
}

// ServiceConfig holds service-level configuration
type ServiceConfig struct {
	Name        string
	Environment string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	URL      string
}

// KafkaConfig holds Kafka broker configuration
type KafkaConfig struct {
	Brokers []string
}

// GRPCConfig holds gRPC server configuration
type GRPCConfig struct {
	Port int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// CacheConfig holds the shared Redis connection used by the idempotency
// store, checkout session store, and vault token store.
type CacheConfig struct {
	URL string
}

// PaymentConfig holds outbound payment provider settings.
type PaymentConfig struct {
	ProviderURL string
	APIKey      string
}

// TaxConfig holds outbound tax provider settings.
type TaxConfig struct {
	ProviderURL string
	APIKey      string
}

// CheckoutConfig holds checkout session lifetime settings.
type CheckoutConfig struct {
	SessionTTL time.Duration
}

// IdempotencyConfig holds idempotency record retention settings.
type IdempotencyConfig struct {
	TTL time.Duration
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	JWTSecret string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        getEnv("SERVICE_NAME", "commerce-engine"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "commerce"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 8082),
		},
		HTTP: HTTPConfig{
			Port: getEnvInt("HTTP_PORT", 9092),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			URL: getEnv("CACHE_URL", "redis://localhost:6379/0"),
		},
		Payment: PaymentConfig{
			ProviderURL: getEnv("PAYMENT_PROVIDER_URL", "http://localhost:9401"),
			APIKey:      getEnv("PAYMENT_PROVIDER_API_KEY", ""),
		},
		Tax: TaxConfig{
			ProviderURL: getEnv("TAX_PROVIDER_URL", "http://localhost:9402"),
			APIKey:      getEnv("TAX_PROVIDER_API_KEY", ""),
		},
		Checkout: CheckoutConfig{
			SessionTTL: getEnvDuration("CHECKOUT_SESSION_TTL", 3600*time.Second),
		},
		Idempotency: IdempotencyConfig{
			TTL: getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
	}

	// Build database URL; DATABASE_URL, when set, takes precedence over
	// the DB_* parts.
	cfg.Database.URL = getEnv("DATABASE_URL", fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
	))

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvSlice gets a comma-separated environment variable as a slice
func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable (Go duration syntax,
// e.g. "3600s", "24h") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
