// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the runtime configuration shared by the server, worker and CLI.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	// DatabaseURL selects the Postgres store; empty runs on the in-memory store.
	DatabaseURL string
	DBMaxConns  int
	// DBStatementTimeout bounds every statement of a transaction; zero disables it.
	DBStatementTimeout time.Duration

	JWTSecret    string
	AuthDisabled bool

	IdempotencyTTL     time.Duration
	CatalogCacheTTL    time.Duration
	StockAdvisoryLocks bool

	WorkerInterval time.Duration
	// MetricsAddr serves the worker's /metrics; empty disables it.
	MetricsAddr string
}

// Load reads the configuration and validates it.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 20),
		DBStatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AuthDisabled:       getEnvBool("AUTH_DISABLED", false),
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		CatalogCacheTTL:    getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		StockAdvisoryLocks: getEnvBool("STOCK_ADVISORY_LOCKS", false),
		WorkerInterval:     getEnvDuration("WORKER_INTERVAL", 15*time.Minute),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
	}
	return cfg, cfg.Validate()
}

// Validate checks combinations Load cannot default away.
func (c Config) Validate() error {
	if !c.AuthDisabled && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required unless AUTH_DISABLED=true")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBStatementTimeout < 0 {
		return fmt.Errorf("DB_STATEMENT_TIMEOUT must not be negative")
	}
	if c.WorkerInterval <= 0 {
		return fmt.Errorf("WORKER_INTERVAL must be positive")
	}
	return nil
}

// Development reports whether APP_ENV selects development logging.
func (c Config) Development() bool {
	return c.AppEnv == "development"
}

// UsesPostgres reports whether a database URL is configured.
func (c Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
