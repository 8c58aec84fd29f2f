package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Config holds application configuration values.
type Config struct {
	Secret      string
	DatabaseDSN string
	HTTPPort    string
	RedisAddr   string
	RedisPass   string
	CacheTTL    time.Duration
	TokenTTL    time.Duration
	LogLevel    string
	Env         string
	CORSOrigins []string
	CatalogCSV  string
}

const defaultDSN = "file:pharmalink.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Load reads configuration from an optional .env file and the environment,
// applying defaults for anything unset.
func Load() (Config, error) {
	// A missing .env is fine; values may come from the real environment.
	_ = godotenv.Load()

	cfg := Config{
		Secret:      getEnv("SECRET", "dev_secret"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   os.Getenv("REDIS_PASS"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Env:         strings.ToLower(getEnv("APP_ENV", "development")),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		CatalogCSV:  os.Getenv("CATALOG_CSV"),
	}

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required")
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("invalid HTTP_PORT value %q", c.HTTPPort)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL value %q", c.LogLevel)
	}
	if c.Secret == "" {
		return errors.New("SECRET is required")
	}
	return nil
}

// Production reports whether APP_ENV selects production behaviour.
func (c Config) Production() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
