package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	ProviderFake   = "fake"
	ProviderStripe = "stripe"
)

type Config struct {
	HTTPAddr string
	GinMode  string
	LogLevel string

	Store       string
	DatabaseURL string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProductCacheTTL time.Duration

	KafkaBrokers string

	PaymentProvider string
	StripeSecretKey string
	StripeBaseURL   string
	Currency        string

	StoreTimeout    time.Duration
	ProviderTimeout time.Duration
}

// Load читает необязательный .env (или указанные файлы), затем окружение
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":9091"),
		GinMode:         getEnv("GIN_MODE", "release"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Store:           strings.ToLower(getEnv("STORE", StoreMemory)),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		ProductCacheTTL: getEnvAsDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		PaymentProvider: strings.ToLower(getEnv("PAYMENT_PROVIDER", ProviderFake)),
		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		StripeBaseURL:   getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
		Currency:        strings.ToLower(getEnv("CURRENCY", "usd")),
		StoreTimeout:    getEnvAsDuration("STORE_TIMEOUT", 3*time.Second),
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE %q", c.Store))
	}
	switch c.PaymentProvider {
	case ProviderFake:
	case ProviderStripe:
		if c.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required for PAYMENT_PROVIDER=stripe"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider))
	}
	if c.StoreTimeout <= 0 || c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
