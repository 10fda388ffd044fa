package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestInitConfigToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := InitConfigToPath(path, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Generated config failed to load: %v", err)
	}
	if len(cfg.SecretKey) != 64 {
		t.Errorf("Generated config should carry a secret key, got %q", cfg.SecretKey)
	}
}

func TestInitConfigToPath_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := InitConfigToPath(path, false); err != nil {
		t.Fatal(err)
	}

	err := InitConfigToPath(path, false)
	if err == nil {
		t.Fatal("Expected error when config file already exists")
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("Error should mention --force, got: %v", err)
	}

	// Force overwrites.
	if err := InitConfigToPath(path, true); err != nil {
		t.Errorf("Force overwrite failed: %v", err)
	}
}
