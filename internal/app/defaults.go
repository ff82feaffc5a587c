package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first. Environment variables:
//   - XET_CONFIG_PATH: config file location (default: ~/.xet/config.toml)
//   - XET_HOME: base directory for xet data (default: ~/.xet)
func GetDefaults() (map[string]string, error) {
	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	configPath := os.Getenv("XET_CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join(baseDir, "config.toml")
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getBaseDir returns the base directory for xet data, checking the XET_HOME
// env var first, then falling back to the default ~/.xet.
func getBaseDir() (string, error) {
	if path := os.Getenv("XET_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".xet"), nil
}

// AuthDir returns the credential store directory under the base directory.
func AuthDir(baseDir string) string {
	return filepath.Join(baseDir, "auth")
}
