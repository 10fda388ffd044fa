package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/esgate/pkg/cache"
	"github.com/marmos91/esgate/pkg/directory"
	"github.com/marmos91/esgate/pkg/roles"
)

// Config represents the esgate configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (ESGATE_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server contains HTTP listener settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics controls the Prometheus /metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// SecretKey is the passphrase protecting cached credentials.
	// When empty, a random key is generated at startup; cached entries
	// then do not survive a restart.
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`

	// Auth configures the trusted proxy headers carrying the caller
	// identity.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Issuance tunes credential generation and cache lifetime behavior.
	Issuance IssuanceConfig `mapstructure:"issuance" yaml:"issuance"`

	// Cache selects and configures the credential cache backend.
	Cache cache.Config `mapstructure:"cache" yaml:"cache"`

	// Elasticsearch configures the user directory the gate provisions
	// into.
	Elasticsearch directory.ElasticsearchConfig `mapstructure:"elasticsearch" yaml:"elasticsearch"`

	// Roles is the group to role mapping table.
	Roles roles.GroupRoleConfig `mapstructure:"roles" yaml:"roles"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	// Default: false (opt-in)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address. Empty binds all interfaces.
	Host string `mapstructure:"host" yaml:"host,omitempty"`

	// Port is the HTTP listen port.
	// Default: 5601
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading a request
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out a response
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle connection timeout
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// Addr returns the host:port the server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig configures the Prometheus metrics endpoint.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the /metrics
	// endpoint are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AuthConfig configures the trusted proxy headers. The gate believes
// these headers unconditionally, so the listener must only be reachable
// through the authenticating proxy.
type AuthConfig struct {
	// Headers names the request headers carrying the identity fields.
	Headers HeadersConfig `mapstructure:"headers" yaml:"headers"`

	// GroupWhitelist, when non-empty, drops any asserted group not in
	// the list before role mapping.
	GroupWhitelist []string `mapstructure:"group_whitelist" yaml:"group_whitelist,omitempty"`
}

// HeadersConfig names the identity request headers set by the proxy.
type HeadersConfig struct {
	// Username carries the authenticated username (required on requests)
	Username string `mapstructure:"username" validate:"required" yaml:"username"`

	// Groups carries the comma-separated group list
	Groups string `mapstructure:"groups" validate:"required" yaml:"groups"`

	// Email carries the user's email address
	Email string `mapstructure:"email" validate:"required" yaml:"email"`

	// Name carries the user's display name
	Name string `mapstructure:"name" validate:"required" yaml:"name"`
}

// IssuanceConfig tunes credential generation.
type IssuanceConfig struct {
	// ExtendTTL re-arms the cache expiry on every valid lookup, so the
	// TTL acts as an inactivity window.
	ExtendTTL bool `mapstructure:"extend_ttl" yaml:"extend_ttl"`

	// FixedPassword, when set, is issued to every user instead of a
	// generated one. Test environments only.
	FixedPassword string `mapstructure:"fixed_password" yaml:"fixed_password,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ESGATE_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal regardless of whether a file was found: env-only
	// deployments carry their whole configuration in ESGATE_* variables.
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the
// config file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  esgate init\n\n"+
				"Or specify a custom config file:\n"+
				"  esgate <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  esgate init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600 because the file carries the secret key and directory
	// credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy of the configuration with every secret masked.
// This is what the /config endpoint serves.
func (c *Config) Redacted() Config {
	out := *c
	if out.SecretKey != "" {
		out.SecretKey = "<redacted>"
	}
	if out.Elasticsearch.Password != "" {
		out.Elasticsearch.Password = "<redacted>"
	}
	if out.Cache.Redis.Password != "" {
		out.Cache.Redis.Password = "<redacted>"
	}
	if out.Issuance.FixedPassword != "" {
		out.Issuance.FixedPassword = "<redacted>"
	}
	return out
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the ESGATE_ prefix and underscores.
	// Example: ESGATE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("ESGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers every configuration key with viper so Unmarshal
// picks its ESGATE_* variable up even when no config file names the key.
// AutomaticEnv only resolves keys viper already knows about.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"logging.format",
		"logging.output",
		"telemetry.enabled",
		"telemetry.endpoint",
		"telemetry.insecure",
		"telemetry.sample_rate",
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.shutdown_timeout",
		"metrics.enabled",
		"secret_key",
		"auth.headers.username",
		"auth.headers.groups",
		"auth.headers.email",
		"auth.headers.name",
		"auth.group_whitelist",
		"issuance.extend_ttl",
		"issuance.fixed_password",
		"cache.backend",
		"cache.ttl",
		"cache.redis.host",
		"cache.redis.port",
		"cache.redis.db",
		"cache.redis.password",
		"cache.badger.path",
		"cache.badger.in_memory",
		"elasticsearch.url",
		"elasticsearch.username",
		"elasticsearch.password",
		"elasticsearch.insecure_skip_verify",
		"elasticsearch.timeout",
		"elasticsearch.dry_run",
		"roles.default_role",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file when one exists. A missing
// file is not an error; the environment can carry the full configuration.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook converts strings to time.Duration so config files
// can use human-readable durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "esgate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "esgate")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
