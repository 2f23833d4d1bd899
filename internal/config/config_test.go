// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_Load(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HomeDir == "" {
		t.Error("HomeDir should not be empty")
	}

	if cfg.PixcodeDir == "" {
		t.Error("PixcodeDir should not be empty")
	}

	// Verify PixcodeDir exists
	if _, err := os.Stat(cfg.PixcodeDir); os.IsNotExist(err) {
		t.Error("PixcodeDir should be created")
	}

	if _, err := os.Stat(cfg.SnapshotsDir); os.IsNotExist(err) {
		t.Error("SnapshotsDir should be created")
	}
}

func TestConfig_ProjectSnapshotDir(t *testing.T) {
	cfg, _ := Load()

	path := cfg.ProjectSnapshotDir("proj-123")
	expected := filepath.Join(cfg.SnapshotsDir, "proj-123")

	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}
}
