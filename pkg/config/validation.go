package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct validation tags.
// Nested sections (cache, elasticsearch, roles) are validated through
// their own tags.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			first := errs[0]
			return fmt.Errorf("field %s failed on the %q rule (value: %v)",
				first.Namespace(), first.Tag(), first.Value())
		}
		return err
	}

	// Cross-field rules the tag language cannot express.
	if cfg.Cache.Backend == "badger" && !cfg.Cache.Badger.InMemory && cfg.Cache.Badger.Path == "" {
		return fmt.Errorf("cache.badger.path is required when the badger backend is not in-memory")
	}

	if !cfg.Elasticsearch.DryRun && cfg.Elasticsearch.Username == "" {
		return fmt.Errorf("elasticsearch.username is required unless dry_run is enabled")
	}

	return nil
}
