// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
)

// Config holds all application configuration paths
type Config struct {
	HomeDir      string
	PixcodeDir   string
	SnapshotsDir string
	DatabasePath string
	SettingsPath string
	LogDir       string
}

// Load creates a Config instance with resolved paths
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	pixcodeDir := filepath.Join(home, ".pixcode")
	snapshotsDir := filepath.Join(pixcodeDir, "snapshots")
	logDir := filepath.Join(pixcodeDir, "logs")

	// Ensure directories exist
	for _, dir := range []string{pixcodeDir, snapshotsDir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return &Config{
		HomeDir:      home,
		PixcodeDir:   pixcodeDir,
		SnapshotsDir: snapshotsDir,
		DatabasePath: filepath.Join(pixcodeDir, "projects.db"),
		SettingsPath: filepath.Join(pixcodeDir, "settings.yaml"),
		LogDir:       logDir,
	}, nil
}

// ProjectSnapshotDir returns the snapshot directory for one project
func (c *Config) ProjectSnapshotDir(projectID string) string {
	return filepath.Join(c.SnapshotsDir, projectID)
}
