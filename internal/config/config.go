package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for xet.
type Config struct {
	Domain              string        `toml:"domain"`
	BaseDir             string        `toml:"base_dir"`
	LogDir              string        `toml:"log_dir"`
	MaxConcurrentCopies int64         `toml:"max_concurrent_copies"`
	WorkerPoolSize      int           `toml:"worker_pool_size"`
	History             HistoryConfig `toml:"history"`
	S3                  S3Config      `toml:"s3"`
	SFTP                SFTPConfig    `toml:"sftp"`
}

// HistoryConfig represents configuration for the operation-history store.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type HistoryConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// S3Config holds settings for the object-store backend. Empty fields fall
// back to the ambient AWS configuration.
type S3Config struct {
	Region          string `toml:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `toml:"use_path_style,omitempty"`
}

// SFTPConfig holds settings for the remote-filesystem backend.
type SFTPConfig struct {
	Host           string `toml:"host,omitempty"`
	Port           int    `toml:"port,omitempty"`
	User           string `toml:"user,omitempty"`
	Password       string `toml:"password,omitempty"`
	KeyPath        string `toml:"key_path,omitempty"`
	KnownHostsPath string `toml:"known_hosts_path,omitempty"`
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(domain, baseDir string) *Config {
	if domain == "" {
		domain = "https://xethub.com"
	}
	return &Config{
		Domain:              domain,
		BaseDir:             baseDir,
		LogDir:              filepath.Join(baseDir, "log"),
		MaxConcurrentCopies: 32,
		WorkerPoolSize:      16,
		History: HistoryConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
