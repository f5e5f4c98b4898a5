// Package config loads and persists the qaproof YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all qaproof configuration.
type Config struct {
	// API endpoint settings
	API APIConfig `yaml:"api"`

	// Editor behavior (pagination, auto-save)
	Editor EditorConfig `yaml:"editor"`

	// Local state (token, guest sessions, hidden-item sets)
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// EditorConfig configures pagination and the collaboration editor timers.
type EditorConfig struct {
	// Records per page in the file table view.
	PageSize int `yaml:"page_size"`

	// Records per page in collaboration/editor views.
	CollabPageSize int `yaml:"collab_page_size"`

	AutoSaveEnabled   bool   `yaml:"auto_save_enabled"`
	AutoSaveInterval  string `yaml:"auto_save_interval"`
	ActivityInterval  string `yaml:"activity_interval"`
	IdleCheckInterval string `yaml:"idle_check_interval"`
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	// Backend: "file" or "sqlite".
	Backend string `yaml:"backend"`

	StateDir     string `yaml:"state_dir"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the default configuration. Paths are rooted under
// ~/.qaproof when a home directory is available.
func DefaultConfig() *Config {
	stateDir := ".qaproof"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".qaproof")
	}
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5001/api/v1",
			Timeout: "30s",
		},
		Editor: EditorConfig{
			PageSize:          20,
			CollabPageSize:    5,
			AutoSaveEnabled:   true,
			AutoSaveInterval:  "30s",
			ActivityInterval:  "60s",
			IdleCheckInterval: "5m",
		},
		Storage: StorageConfig{
			Backend:      "sqlite",
			StateDir:     filepath.Join(stateDir, "state"),
			DatabasePath: filepath.Join(stateDir, "qaproof.db"),
		},
		Logging: LoggingConfig{
			Debug: false,
			Level: "info",
			Dir:   filepath.Join(stateDir, "logs"),
		},
	}
}

// DefaultPath returns the standard config file location,
// ~/.qaproof/config.yaml, falling back to a relative path when no home
// directory is available.
func DefaultPath() string {
	dir := ".qaproof"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".qaproof")
	}
	return filepath.Join(dir, "config.yaml")
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("QAPROOF_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if dir := os.Getenv("QAPROOF_STATE_DIR"); dir != "" {
		c.Storage.StateDir = dir
	}
	if path := os.Getenv("QAPROOF_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if os.Getenv("QAPROOF_DEBUG") == "1" {
		c.Logging.Debug = true
		c.Logging.Level = "debug"
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetAPITimeout returns the API request timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 30*time.Second)
}

// GetAutoSaveInterval returns the draft auto-save interval.
func (c *Config) GetAutoSaveInterval() time.Duration {
	return parseDuration(c.Editor.AutoSaveInterval, 30*time.Second)
}

// GetActivityInterval returns the working-session heartbeat interval.
func (c *Config) GetActivityInterval() time.Duration {
	return parseDuration(c.Editor.ActivityInterval, time.Minute)
}

// GetIdleCheckInterval returns the idle-check interval.
func (c *Config) GetIdleCheckInterval() time.Duration {
	return parseDuration(c.Editor.IdleCheckInterval, 5*time.Minute)
}
