package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Editor.PageSize != 20 {
		t.Errorf("file table page size = %d, want 20", cfg.Editor.PageSize)
	}
	if cfg.Editor.CollabPageSize != 5 {
		t.Errorf("collab page size = %d, want 5", cfg.Editor.CollabPageSize)
	}
	if cfg.GetAutoSaveInterval() != 30*time.Second {
		t.Errorf("auto-save interval = %v", cfg.GetAutoSaveInterval())
	}
	if cfg.GetActivityInterval() != time.Minute {
		t.Errorf("activity interval = %v", cfg.GetActivityInterval())
	}
	if cfg.GetIdleCheckInterval() != 5*time.Minute {
		t.Errorf("idle-check interval = %v", cfg.GetIdleCheckInterval())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config should fall back to defaults: %v", err)
	}
	if cfg.API.BaseURL == "" {
		t.Error("defaults not applied")
	}
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("DefaultPath = %q, want a config.yaml", path)
	}
	if filepath.Base(filepath.Dir(path)) != ".qaproof" {
		t.Errorf("DefaultPath = %q, want it under .qaproof", path)
	}

	// A config saved at the default location loads back.
	t.Setenv("HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://saved.example.com/api/v1"
	if err := cfg.Save(DefaultPath()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(DefaultPath())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.API.BaseURL != "https://saved.example.com/api/v1" {
		t.Errorf("base URL = %q", loaded.API.BaseURL)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://qa.example.com/api/v1"
	cfg.Editor.AutoSaveEnabled = false
	cfg.Editor.AutoSaveInterval = "45s"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.API.BaseURL != "https://qa.example.com/api/v1" {
		t.Errorf("base URL = %q", loaded.API.BaseURL)
	}
	if loaded.Editor.AutoSaveEnabled {
		t.Error("auto-save flag not persisted")
	}
	if loaded.GetAutoSaveInterval() != 45*time.Second {
		t.Errorf("auto-save interval = %v", loaded.GetAutoSaveInterval())
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("QAPROOF_API_URL", "http://override:9000/api/v1")
	defer os.Unsetenv("QAPROOF_API_URL")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "http://override:9000/api/v1" {
		t.Errorf("env override not applied: %q", cfg.API.BaseURL)
	}
}

func TestBadDurationFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Timeout = "not-a-duration"
	if cfg.GetAPITimeout() != 30*time.Second {
		t.Errorf("timeout fallback = %v", cfg.GetAPITimeout())
	}
}
