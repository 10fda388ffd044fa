// Package cache defines the TTL-keyed store that holds encrypted
// credentials between requests, with redis and embedded badger backends.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("cache key not found")

	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("cache unavailable")
)

// Store is a TTL-keyed byte store. All methods are safe for concurrent use.
//
// Implementations treat expiry as authoritative: an expired key behaves
// exactly like an absent one.
type Store interface {
	// Exists reports whether the key is present and not expired. The
	// server answers presence checks without fetching or decrypting the
	// entry; esgate itself always wants the value and uses Get.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL, replacing any
	// previous entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// TTL returns the remaining time to live for key. A result <= 0 means
	// the key is absent or already expired.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// RefreshExpiry resets the key's TTL without changing its value.
	// Refreshing an absent key is a no-op.
	RefreshExpiry(ctx context.Context, key string, ttl time.Duration) error

	// Ping verifies the backend is reachable. Used by readiness probes.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted in configuration.
const (
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Config selects and configures the cache backend.
type Config struct {
	// Backend is "redis" or "badger".
	Backend string `mapstructure:"backend" validate:"required,oneof=redis badger" yaml:"backend"`

	// TTL is the full lifetime of a cached credential.
	TTL time.Duration `mapstructure:"ttl" validate:"required,gt=0" yaml:"ttl"`

	// Redis holds redis backend settings (ignored for badger).
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`

	// Badger holds embedded backend settings (ignored for redis).
	Badger BadgerConfig `mapstructure:"badger" yaml:"badger"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	// Host is the redis server hostname.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the redis server port.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// DB is the redis logical database number.
	DB int `mapstructure:"db" yaml:"db"`

	// Password is the redis AUTH password (optional).
	Password string `mapstructure:"password" yaml:"password,omitempty"`
}

// BadgerConfig holds settings for the embedded badger backend.
type BadgerConfig struct {
	// Path is the on-disk database directory. Ignored when InMemory is set.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// InMemory keeps the whole store in memory. Entries do not survive a
	// restart; suitable for single-instance deployments and development.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`
}

// New constructs the Store selected by cfg.Backend.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisStore(cfg.Redis), nil
	case BackendBadger:
		return NewBadgerStore(cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
