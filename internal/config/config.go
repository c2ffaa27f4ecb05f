package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"actinvoting/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	LogLevel string
	Session  SessionConfig
	Batch    BatchConfig
	Store    StoreConfig
	Server   ServerConfig
}

// SessionConfig holds the numerical settings of asymptotic sessions
type SessionConfig struct {
	CriticalTolerance float64
	QuadratureNodes   int
}

// BatchConfig holds batch driver settings
type BatchConfig struct {
	Jobs int
	Seed uint64
}

// StoreConfig selects the result store
type StoreConfig struct {
	Driver string
	DSN    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// Load reads an optional .env file, then environment variables, and validates
// the result
func Load() (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables only
func FromEnv() (*Config, error) {
	seed, err := getEnvUintOrDefault("ACTINVOTING_SEED", 42)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load batch configuration")
	}
	config := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
		Session: SessionConfig{
			CriticalTolerance: getEnvFloatOrDefault("ACTINVOTING_CRITICAL_TOLERANCE", 1e-8),
			QuadratureNodes:   getEnvIntOrDefault("ACTINVOTING_QUAD_NODES", 48),
		},
		Batch: BatchConfig{
			Jobs: getEnvIntOrDefault("ACTINVOTING_JOBS", 1),
			Seed: seed,
		},
		Store: StoreConfig{
			Driver: getEnvOrDefault("ACTINVOTING_STORE_DRIVER", "sqlite"),
			DSN:    getEnvOrDefault("ACTINVOTING_STORE_DSN", "actinvoting.db"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Session.CriticalTolerance < 0 {
		return errors.ConfigInvalid("ACTINVOTING_CRITICAL_TOLERANCE must be non-negative")
	}
	if config.Session.QuadratureNodes < 2 {
		return errors.ConfigInvalid("ACTINVOTING_QUAD_NODES must be at least 2")
	}
	if config.Batch.Jobs < 1 {
		return errors.ConfigInvalid("ACTINVOTING_JOBS must be at least 1")
	}
	switch config.Store.Driver {
	case "sqlite", "postgres":
		if config.Store.DSN == "" {
			return errors.ConfigInvalid("ACTINVOTING_STORE_DSN is required for the " + config.Store.Driver + " store")
		}
	case "none":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown ACTINVOTING_STORE_DRIVER %q", config.Store.Driver))
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("PORT %q is not a number", config.Server.Port))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvUintOrDefault(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not an unsigned integer", key, value))
	}
	return v, nil
}
