package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all AI Studio client configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend every collaborator talks to (auth, chat, predictions)
	Backend BackendConfig `yaml:"backend"`

	// Durable credential storage
	Storage StorageConfig `yaml:"storage"`

	// Robot car controller
	Robot RobotConfig `yaml:"robot"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the remote API.
type BackendConfig struct {
	BaseURL         string `yaml:"base_url"`
	Timeout         string `yaml:"timeout"`          // per-request timeout for tools and auth
	ValidateTimeout string `yaml:"validate_timeout"` // boot-time session validation
	LogoutTimeout   string `yaml:"logout_timeout"`   // best-effort logout notification
}

// StorageConfig configures where the persisted credential lives.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// RobotConfig configures the robot car tool.
type RobotConfig struct {
	Address string `yaml:"address"`
	Timeout string `yaml:"timeout"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme        string `yaml:"theme"` // light, dark, auto
	CompactWidth int    `yaml:"compact_width"`
}

// DefaultDir returns ~/.aistudio, falling back to a relative directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aistudio"
	}
	return filepath.Join(home, ".aistudio")
}

// DefaultConfigPath returns the default location of config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		Name:    "AI Studio",
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:         "http://localhost:8080",
			Timeout:         "30s",
			ValidateTimeout: "10s",
			LogoutTimeout:   "3s",
		},

		Storage: StorageConfig{
			Path: filepath.Join(dir, "state.db"),
		},

		Robot: RobotConfig{
			Address: "192.168.1.100",
			Timeout: "2s",
		},

		UI: UIConfig{
			Theme:        "auto",
			CompactWidth: 100,
		},

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			Dir:       filepath.Join(dir, "logs"),
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
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
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AISTUDIO_API_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("AISTUDIO_STATE_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("AISTUDIO_ROBOT_ADDR"); v != "" {
		c.Robot.Address = v
	}
	if v := os.Getenv("AISTUDIO_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("AISTUDIO_DEBUG"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = on
			if on {
				c.Logging.Level = "debug"
			}
		}
	}
}

// GetTimeout returns the backend request timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	return parseDuration(c.Backend.Timeout, 30*time.Second)
}

// GetValidateTimeout returns the session validation timeout as a duration.
func (c *Config) GetValidateTimeout() time.Duration {
	return parseDuration(c.Backend.ValidateTimeout, 10*time.Second)
}

// GetLogoutTimeout returns the logout notification timeout as a duration.
func (c *Config) GetLogoutTimeout() time.Duration {
	return parseDuration(c.Backend.LogoutTimeout, 3*time.Second)
}

// GetRobotTimeout returns the robot command timeout as a duration.
func (c *Config) GetRobotTimeout() time.Duration {
	return parseDuration(c.Robot.Timeout, 2*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url not configured (set AISTUDIO_API_URL)")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend base_url: %q", c.Backend.BaseURL)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage path cannot be empty")
	}

	validTheme := false
	for _, t := range ValidThemes {
		if strings.EqualFold(c.UI.Theme, t) {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	return nil
}

// APIBaseURL returns the backend origin without a trailing slash.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/")
}
