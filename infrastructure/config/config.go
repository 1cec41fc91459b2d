// Package config loads application configuration from three layers: code
// defaults, optional YAML files, then environment variables. Environment
// variables always win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	ServerAddress          string `yaml:"serverAddress"`
	Environment            string `yaml:"environment"`
	ReadTimeoutSeconds     int    `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds    int    `yaml:"writeTimeoutSeconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdownTimeoutSeconds"`

	// Storage
	DatabasePath string `yaml:"databasePath"`

	// Snapshot
	SnapshotSource string `yaml:"snapshotSource"`

	// Logging
	LogLevel string `yaml:"logLevel"`

	// Feature flags
	EnableMetrics bool `yaml:"enableMetrics"`
	EnableTracing bool `yaml:"enableTracing"`
	EnableCORS    bool `yaml:"enableCORS"`

	// Tracing
	TracingEndpoint   string  `yaml:"tracingEndpoint"`
	TracingSampleRate float64 `yaml:"tracingSampleRate"`

	// Config directory, for the YAML layers and the dev watcher
	ConfigDir string `yaml:"-"`
}

func defaultConfig() *Config {
	return &Config{
		ServerAddress:          ":8080",
		Environment:            "development",
		ReadTimeoutSeconds:     15,
		WriteTimeoutSeconds:    30,
		ShutdownTimeoutSeconds: 10,
		DatabasePath:           "data/recall.db",
		SnapshotSource:         "recall",
		LogLevel:               "info",
		EnableMetrics:          true,
		EnableTracing:          false,
		EnableCORS:             true,
		TracingEndpoint:        "localhost:4317",
		TracingSampleRate:      0.1,
	}
}

// LoadConfig builds the configuration: defaults, then base.yaml /
// <environment>.yaml / local.yaml from the config directory (each optional),
// then environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	cfg.ConfigDir = getEnv("CONFIG_DIR", "configs")

	// The environment decides which YAML layer applies, so resolve it first.
	env := getEnv("ENVIRONMENT", cfg.Environment)
	for _, name := range []string{"base.yaml", env + ".yaml", "local.yaml"} {
		if err := applyYAMLFile(cfg, filepath.Join(cfg.ConfigDir, name)); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.ReadTimeoutSeconds = getEnvInt("READ_TIMEOUT_SECONDS", cfg.ReadTimeoutSeconds)
	cfg.WriteTimeoutSeconds = getEnvInt("WRITE_TIMEOUT_SECONDS", cfg.WriteTimeoutSeconds)
	cfg.ShutdownTimeoutSeconds = getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", cfg.ShutdownTimeoutSeconds)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.SnapshotSource = getEnv("SNAPSHOT_SOURCE", cfg.SnapshotSource)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
	cfg.TracingEndpoint = getEnv("TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingSampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.TracingSampleRate)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server address is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.EnableTracing && c.TracingEndpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be within [0,1]")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ReadTimeout returns the HTTP read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
