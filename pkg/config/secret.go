package config

import (
	"github.com/marmos91/esgate/internal/logger"
	"github.com/marmos91/esgate/pkg/crypto"
)

// EnsureSecretKey generates a random secret key when none is configured.
// Returns true when a key was generated. A generated key means cached
// credentials become undecryptable after a restart, so the operator is
// warned to pin one.
func (c *Config) EnsureSecretKey() (bool, error) {
	if c.SecretKey != "" {
		return false, nil
	}

	key, err := crypto.GenerateSecretKey()
	if err != nil {
		return false, err
	}
	c.SecretKey = key

	logger.Warn("no secret_key configured, generated a random one",
		"hint", "set ESGATE_SECRET_KEY or secret_key in the config file to keep cached credentials across restarts")

	return true, nil
}
