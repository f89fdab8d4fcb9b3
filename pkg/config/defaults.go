package config

import (
	"strings"
	"time"

	"github.com/casahub/casahub/pkg/blob"
	"github.com/casahub/casahub/pkg/blob/upload"
	"github.com/casahub/casahub/pkg/catalog"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyChunkDefaults(&cfg.Chunks)
	applyRecordDefaults(&cfg.Records)
	applyCatalogDefaults(&cfg.Catalog)
	applyUploadDefaults(&cfg.Upload)
	applyGCDefaults(&cfg.GC)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyChunkDefaults sets chunk store defaults.
func applyChunkDefaults(cfg *ChunkStoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/casahub-chunks"
	}
}

// applyRecordDefaults sets record store defaults.
func applyRecordDefaults(cfg *RecordStoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/casahub-records"
	}
}

// applyCatalogDefaults sets catalog source and query defaults.
func applyCatalogDefaults(cfg *CatalogConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/casahub-catalog"
	}

	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = catalog.DefaultPageSize
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = catalog.DefaultMaxPageSize
	}
}

// applyUploadDefaults sets upload limits defaults.
func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = upload.DefaultMaxBytes
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = append([]string(nil), upload.DefaultAllowedTypes...)
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = blob.DefaultChunkSize
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = 8
	}
}

// applyGCDefaults sets sweeper defaults.
func applyGCDefaults(cfg *GCConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.DraftTTL == 0 {
		cfg.DraftTTL = time.Hour
	}
}
