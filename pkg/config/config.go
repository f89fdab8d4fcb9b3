package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete CasaHub configuration.
//
// This structure captures all configurable aspects of the CasaHub server
// including:
//   - Logging configuration
//   - Server-wide settings (listen address, shutdown timeout)
//   - Chunk store selection and configuration (store-specific)
//   - Record store selection and configuration (store-specific)
//   - Catalog source selection and query limits
//   - Upload limits and concurrency gating
//   - Background sweeper settings
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CASAHUB_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type and factory
// function. The Config struct contains type-specific sections (e.g.
// chunks.badger, chunks.s3) and only the section matching the selected type
// is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Chunks specifies the chunk store type and type-specific configuration
	Chunks ChunkStoreConfig `mapstructure:"chunks"`

	// Records specifies the blob record store type and type-specific
	// configuration
	Records RecordStoreConfig `mapstructure:"records"`

	// Catalog specifies the listing source and query limits
	Catalog CatalogConfig `mapstructure:"catalog"`

	// Upload bounds media ingestion
	Upload UploadConfig `mapstructure:"upload"`

	// GC controls the orphan chunk and stale draft sweeper
	GC GCConfig `mapstructure:"gc"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ListenAddress is the HTTP listen address (e.g. ":8080")
	ListenAddress string `mapstructure:"listen_address" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// ChunkStoreConfig specifies chunk store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type ChunkStoreConfig struct {
	// Type specifies which chunk store implementation to use
	// Valid values: memory, badger, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory badger s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// RecordStoreConfig specifies blob record store configuration.
type RecordStoreConfig struct {
	// Type specifies which record store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// CatalogConfig specifies the listing source and query limits.
type CatalogConfig struct {
	// Type specifies which listing source implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// DefaultPageSize is the page size when a query does not name one
	DefaultPageSize int `mapstructure:"default_page_size" validate:"gte=0"`

	// MaxPageSize caps the page size a query may ask for
	MaxPageSize int `mapstructure:"max_page_size" validate:"gte=0"`
}

// UploadConfig bounds media ingestion.
type UploadConfig struct {
	// MaxBytes is the upload size ceiling in bytes
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gt=0"`

	// AllowedTypes is the MIME type allowlist
	AllowedTypes []string `mapstructure:"allowed_types"`

	// ChunkSize is the chunk size new uploads are split with, in bytes
	ChunkSize int `mapstructure:"chunk_size" validate:"gt=0"`

	// MaxInFlight caps simultaneous uploads. 0 disables the cap.
	MaxInFlight int `mapstructure:"max_in_flight" validate:"gte=0"`

	// StartsPerSecond throttles upload admission. 0 disables the throttle.
	StartsPerSecond uint `mapstructure:"starts_per_second"`
}

// GCConfig controls the background sweeper.
type GCConfig struct {
	// Enabled turns the sweeper on
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often a sweep runs
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`

	// DraftTTL is how old a draft must be before it counts as abandoned
	DraftTTL time.Duration `mapstructure:"draft_ttl" validate:"gte=0"`

	// DryRun logs what a sweep would remove without removing it
	DryRun bool `mapstructure:"dry_run"`
}

// MetricsConfig controls Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metrics collection and the /metrics endpoint on
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CASAHUB_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use CASAHUB_ prefix and underscores
	// Example: CASAHUB_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("CASAHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/casahub/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "casahub")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "casahub")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
