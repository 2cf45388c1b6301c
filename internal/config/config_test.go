package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "AI Studio" {
		t.Errorf("expected Name=AI Studio, got %s", cfg.Name)
	}
	if cfg.Backend.BaseURL != "http://localhost:8080" {
		t.Errorf("expected default backend http://localhost:8080, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Logging.DebugMode {
		t.Error("expected logging disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("AISTUDIO_API_URL", "")
	t.Setenv("AISTUDIO_STATE_DB", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "https://studio.example.com"
	cfg.Storage.Path = "/tmp/studio-state.db"
	cfg.UI.Theme = "dark"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Backend.BaseURL != "https://studio.example.com" {
		t.Errorf("expected BaseURL=https://studio.example.com, got %s", loaded.Backend.BaseURL)
	}
	if loaded.Storage.Path != "/tmp/studio-state.db" {
		t.Errorf("expected storage path to round-trip, got %s", loaded.Storage.Path)
	}
	if loaded.UI.Theme != "dark" {
		t.Errorf("expected theme=dark, got %s", loaded.UI.Theme)
	}
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("AISTUDIO_API_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should not fail: %v", err)
	}
	if cfg.Backend.BaseURL != DefaultConfig().Backend.BaseURL {
		t.Errorf("expected default base url, got %s", cfg.Backend.BaseURL)
	}
}

func TestConfig_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing base url")
	}

	cfg = DefaultConfig()
	cfg.Backend.BaseURL = "localhost:8080"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for scheme-less base url")
	}

	cfg = DefaultConfig()
	cfg.UI.Theme = "neon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown theme")
	}

	cfg = DefaultConfig()
	cfg.Storage.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty storage path")
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Timeout = "not-a-duration"
	cfg.Backend.ValidateTimeout = "-5s"
	cfg.Backend.LogoutTimeout = "750ms"

	if got := cfg.GetTimeout(); got != 30*time.Second {
		t.Errorf("expected fallback 30s, got %v", got)
	}
	if got := cfg.GetValidateTimeout(); got != 10*time.Second {
		t.Errorf("expected fallback 10s for negative duration, got %v", got)
	}
	if got := cfg.GetLogoutTimeout(); got != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", got)
	}
}

func TestConfig_APIBaseURLTrimsSlash(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "http://api.local:9000///"
	if got := cfg.APIBaseURL(); got != "http://api.local:9000" {
		t.Errorf("expected trimmed url, got %s", got)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{DebugMode: false}
	if lc.IsCategoryEnabled("session") {
		t.Error("categories must be disabled outside debug mode")
	}

	lc = LoggingConfig{DebugMode: true}
	if !lc.IsCategoryEnabled("session") {
		t.Error("all categories enabled when no filter is set")
	}

	lc = LoggingConfig{DebugMode: true, Categories: map[string]bool{"api": false}}
	if lc.IsCategoryEnabled("api") {
		t.Error("api explicitly disabled")
	}
	if !lc.IsCategoryEnabled("router") {
		t.Error("unlisted categories default to enabled")
	}
}
