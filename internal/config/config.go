package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gobrick/internal/energy"
	"gobrick/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Evaluation EvaluationConfig
	Observer   energy.Params
	Profiling  ProfilingConfig
	LogLevel   string
}

// DatabaseConfig holds the optional evaluation ledger connection.
// An empty URL runs the service without persistence.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// Enabled reports whether a ledger database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// EvaluationConfig bounds evaluator concurrency and the decoded brick store
type EvaluationConfig struct {
	Workers       int
	MaxConcurrent int
	CacheSize     int
	MinShardSize  int
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database:   loadDatabaseConfig(),
		Server:     loadServerConfig(),
		Evaluation: loadEvaluationConfig(),
		Observer:   loadObserverParams(),
		Profiling:  loadProfilingConfig(),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver: getEnvOrDefault("DATABASE_DRIVER", "postgres"),
		URL:    os.Getenv("DATABASE_URL"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		ReadTimeout:    getEnvDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", 2*time.Minute),
		MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 512)) << 20,
	}
}

func loadEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{
		Workers:       getEnvIntOrDefault("EVAL_WORKERS", runtime.GOMAXPROCS(0)),
		MaxConcurrent: getEnvIntOrDefault("EVAL_MAX_CONCURRENT", 2),
		CacheSize:     getEnvIntOrDefault("BRICK_CACHE_SIZE", 8),
		MinShardSize:  getEnvIntOrDefault("EVAL_MIN_SHARD_SIZE", energy.DefaultMinShardSize),
	}
}

func loadObserverParams() energy.Params {
	return energy.Params{
		PressureFactor: getEnvFloatOrDefault("OBSERVER_PRESSURE_FACTOR", energy.DefaultPressureFactor),
		RapidityCap:    getEnvFloatOrDefault("OBSERVER_RAPIDITY_CAP", energy.DefaultRapidityCap),
		TypeITolerance: getEnvFloatOrDefault("OBSERVER_TYPE_I_TOLERANCE", energy.DefaultTypeITolerance),
	}
}

func loadProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if c.Database.Enabled() && c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return errors.ConfigInvalid(fmt.Sprintf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if c.Evaluation.Workers < 1 {
		return errors.ConfigInvalid("EVAL_WORKERS must be at least 1")
	}
	if c.Evaluation.MaxConcurrent < 1 {
		return errors.ConfigInvalid("EVAL_MAX_CONCURRENT must be at least 1")
	}
	if c.Evaluation.CacheSize < 1 {
		return errors.ConfigInvalid("BRICK_CACHE_SIZE must be at least 1")
	}
	if err := c.Observer.Validate(); err != nil {
		return &errors.AppError{Code: errors.CodeConfigInvalid, Message: "invalid observer parameters", Cause: err}
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
