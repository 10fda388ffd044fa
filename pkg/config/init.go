package config

import (
	"fmt"
	"os"

	"github.com/marmos91/esgate/pkg/crypto"
)

// InitConfig creates a sample configuration file at the default
// location. Returns the path it wrote.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath creates a sample configuration file at the given
// path. An existing file is only overwritten with force. The generated
// file carries a fresh secret key so cached credentials survive
// restarts out of the box.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	cfg := GetDefaultConfig()
	key, err := crypto.GenerateSecretKey()
	if err != nil {
		return fmt.Errorf("failed to generate secret key: %w", err)
	}
	cfg.SecretKey = key

	// Placeholder directory credentials; the operator replaces these.
	cfg.Elasticsearch.Username = "elastic"
	cfg.Elasticsearch.Password = "changeme"

	return SaveConfig(cfg, path)
}
