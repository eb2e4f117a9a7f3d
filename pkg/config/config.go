package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/platinummonkey/protomerge/pkg/observability"
)

// EnvPrefix prefixes every environment variable read by LoadConfig
const EnvPrefix = "PROTOMERGE_"

// Config holds the process configuration
type Config struct {
	// Merge defaults, overridden by a merge file and then by CLI flags
	Merge MergeDefaults

	// Merge result cache
	Cache CacheConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// MergeDefaults holds engine defaults from the environment
type MergeDefaults struct {
	Workers int
}

// CacheConfig controls the in-process merge cache
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
	TTL        time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsFile string // Prometheus textfile written after each run, empty disables

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSamplingRate   float64
}

// LoadConfig loads configuration from environment variables. The environment is first
// seeded from envFiles, or from ./.env when it exists and no files are given. Values
// already present in the environment win over file values.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	obs, err := loadObservabilityConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Merge: MergeDefaults{
			Workers: getEnvInt(EnvPrefix+"WORKERS", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool(EnvPrefix+"CACHE_ENABLED", true),
			MaxEntries: getEnvInt(EnvPrefix+"CACHE_MAX_ENTRIES", 32),
			TTL:        getEnvDuration(EnvPrefix+"CACHE_TTL", 10*time.Minute),
		},
		Observability: obs,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

func loadObservabilityConfig() (ObservabilityConfig, error) {
	level, err := observability.ParseLogLevel(getEnv(EnvPrefix+"LOG_LEVEL", "info"))
	if err != nil {
		return ObservabilityConfig{}, err
	}

	return ObservabilityConfig{
		LogLevel:           level,
		MetricsFile:        getEnv(EnvPrefix+"METRICS_FILE", ""),
		OTelEnabled:        getEnvBool(EnvPrefix+"OTEL_ENABLED", false),
		OTelEndpoint:       getEnv(EnvPrefix+"OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv(EnvPrefix+"OTEL_SERVICE_NAME", "protomerge"),
		OTelServiceVersion: getEnv(EnvPrefix+"OTEL_SERVICE_VERSION", "dev"),
		OTelInsecure:       getEnvBool(EnvPrefix+"OTEL_INSECURE", true),
		OTelSamplingRate:   getEnvFloat(EnvPrefix+"OTEL_SAMPLING_RATE", 1.0),
	}, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Merge.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Merge.Workers))
	}

	if c.Cache.Enabled {
		if c.Cache.MaxEntries <= 0 {
			errs = append(errs, fmt.Errorf("cache max entries must be positive when the cache is enabled"))
		}
		if c.Cache.TTL < 0 {
			errs = append(errs, fmt.Errorf("cache TTL must not be negative"))
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, fmt.Errorf("OpenTelemetry service name is required when OTel is enabled"))
		}
		if rate := c.Observability.OTelSamplingRate; rate < 0 || rate > 1 {
			errs = append(errs, fmt.Errorf("OpenTelemetry sampling rate must be within [0, 1], got %v", rate))
		}
	}

	return errors.Join(errs...)
}

// OTelConfig converts the settings for observability.InitOTel
func (c ObservabilityConfig) OTelConfig() observability.OTelConfig {
	return observability.OTelConfig{
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Endpoint:       c.OTelEndpoint,
		Enabled:        c.OTelEnabled,
		Insecure:       c.OTelInsecure,
		SamplingRate:   c.OTelSamplingRate,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
