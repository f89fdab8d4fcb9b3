package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Catalog.DefaultPageSize > cfg.Catalog.MaxPageSize {
		return fmt.Errorf("catalog: default_page_size %d exceeds max_page_size %d",
			cfg.Catalog.DefaultPageSize, cfg.Catalog.MaxPageSize)
	}

	// Persistent stores sharing one BadgerDB directory would corrupt each
	// other; each store opens its own database.
	paths := make(map[string]string)
	for name, section := range map[string]map[string]any{
		"chunks.badger":  cfg.Chunks.Badger,
		"records.badger": cfg.Records.Badger,
		"catalog.badger": cfg.Catalog.Badger,
	} {
		path, _ := section["db_path"].(string)
		if path == "" {
			continue
		}
		if other, dup := paths[path]; dup {
			return fmt.Errorf("%s: db_path %q is already used by %s", name, path, other)
		}
		paths[path] = name
	}

	if cfg.GC.Enabled && cfg.GC.Interval <= 0 {
		return fmt.Errorf("gc: interval must be positive when the sweeper is enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
