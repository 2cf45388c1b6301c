// Package config stores terminal preferences that the user changes from
// inside the TUI, kept apart from the YAML client configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Prefs holds user preferences
type Prefs struct {
	Theme        string `json:"theme"`         // "light", "dark" or "auto"
	RobotAddress string `json:"robot_address"` // last robot the user connected to
}

// DefaultPrefs returns the default preferences
func DefaultPrefs() Prefs {
	return Prefs{
		Theme: "auto",
	}
}

// File returns the prefs path inside dir.
func File(dir string) string {
	return filepath.Join(dir, "prefs.json")
}

// Load reads the preferences from disk. A missing file yields the defaults.
func Load(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPrefs(), nil
	}
	if err != nil {
		return DefaultPrefs(), err
	}

	prefs := DefaultPrefs()
	if err := json.Unmarshal(data, &prefs); err != nil {
		return DefaultPrefs(), err
	}

	return prefs, nil
}

// Save writes the preferences to disk
func Save(path string, prefs Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
