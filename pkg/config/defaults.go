package config

import (
	"strings"
	"time"

	"github.com/marmos91/esgate/pkg/cache"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// Default strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyAuthDefaults(&cfg.Auth)
	applyCacheDefaults(&cfg.Cache)
	applyElasticsearchDefaults(cfg)
	applyRolesDefaults(cfg)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in)

	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyServerDefaults sets HTTP listener defaults. The default port
// matches the dashboard the gate fronts, so the proxy upstream needs no
// change when esgate is slotted in.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 5601
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyAuthDefaults sets the standard Remote-* header names used by
// authenticating reverse proxies.
func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Headers.Username == "" {
		cfg.Headers.Username = "Remote-User"
	}
	if cfg.Headers.Groups == "" {
		cfg.Headers.Groups = "Remote-Groups"
	}
	if cfg.Headers.Email == "" {
		cfg.Headers.Email = "Remote-Email"
	}
	if cfg.Headers.Name == "" {
		cfg.Headers.Name = "Remote-Name"
	}
}

// applyCacheDefaults sets cache defaults. The embedded backend needs no
// external service, which keeps the zero-config path working.
func applyCacheDefaults(cfg *cache.Config) {
	if cfg.Backend == "" {
		cfg.Backend = cache.BackendBadger
		cfg.Badger.InMemory = true
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Backend == cache.BackendRedis {
		if cfg.Redis.Host == "" {
			cfg.Redis.Host = "localhost"
		}
		if cfg.Redis.Port == 0 {
			cfg.Redis.Port = 6379
		}
	}
	if cfg.Backend == cache.BackendBadger && !cfg.Badger.InMemory && cfg.Badger.Path == "" {
		cfg.Badger.Path = "/var/lib/esgate/cache"
	}
}

// applyElasticsearchDefaults sets directory defaults.
func applyElasticsearchDefaults(cfg *Config) {
	if cfg.Elasticsearch.URL == "" {
		cfg.Elasticsearch.URL = "http://localhost:9200"
	}
	if cfg.Elasticsearch.Timeout == 0 {
		cfg.Elasticsearch.Timeout = 10 * time.Second
	}
}

// applyRolesDefaults sets role mapping defaults.
func applyRolesDefaults(cfg *Config) {
	if cfg.Roles.DefaultRole == "" {
		cfg.Roles.DefaultRole = "kibana_user"
	}
}

// GetDefaultConfig returns a Config struct with all default values
// applied. Useful for generating sample configuration files and for
// tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
