package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for feed-engine
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Feed     FeedConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds PostgreSQL configuration. An empty DSN runs the
// engine without persistence: queue building stays up, submission and
// comparison endpoints report the store as unavailable.
type DatabaseConfig struct {
	DSN           string
	MigrationsDir string
	MaxOpenConns  int
	MaxIdleConns  int
}

// RedisConfig holds Redis configuration. An empty address falls back
// to in-process locking.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// CatalogConfig holds challenge catalog configuration
type CatalogConfig struct {
	Dir             string
	RefreshInterval time.Duration
}

// FeedConfig holds queue building configuration
type FeedConfig struct {
	BatchSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DATABASE_DSN", ""),
			MigrationsDir: getEnv("DATABASE_MIGRATIONS_DIR", "./migrations"),
			MaxOpenConns:  getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:  getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			Dir:             getEnv("CATALOG_DIR", "./catalog"),
			RefreshInterval: getEnvAsDuration("CATALOG_REFRESH_INTERVAL", 10*time.Minute),
		},
		Feed: FeedConfig{
			BatchSize: getEnvAsInt("FEED_BATCH_SIZE", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Catalog.Dir == "" {
		return fmt.Errorf("catalog directory is required")
	}

	if c.Feed.BatchSize < 1 {
		return fmt.Errorf("invalid feed batch size: %d", c.Feed.BatchSize)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
