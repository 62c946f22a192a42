// Package config holds the two kinds of configuration the outer CLI
// needs: small per-user JSON preferences (display layout, refresh
// cadence) persisted the way the teacher's config package does, and a
// TOML-loaded scenario description (colony layout, tunable parameters,
// op/pipeline/tech/Black Swan catalogs) that seeds a kernel.Config and
// worldstore.Store for one run. Neither kind is read by the kernel
// itself — the kernel only ever sees the already-resolved
// kernel.Config + worldstore.Store this package builds.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Preferences holds user-configurable CLI display defaults, unrelated to
// any particular simulation run.
type Preferences struct {
	DefaultLayout int    `json:"default_layout"`
	RefreshMS     int    `json:"refresh_ms"`
	HistorySize   int    `json:"history_size"`
	Section       string `json:"default_section"`
}

// DefaultPreferences returns sensible defaults for a freshly installed CLI.
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultLayout: 0,
		RefreshMS:     200,
		HistorySize:   300,
		Section:       "overview",
	}
}

// Path returns ~/.config/colonysim/preferences.json (or XDG_CONFIG_HOME).
// Returns empty string if the home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // refuse to fall back to /tmp (security risk)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "colonysim", "preferences.json")
}

// LoadPreferences loads preferences from disk; returns defaults on error.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	p := Path()
	if p == "" {
		return prefs
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return prefs
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		log.Printf("colonysim: warning: preferences parse error: %v", err)
	}
	return prefs
}

// SavePreferences writes prefs to disk.
func SavePreferences(prefs Preferences) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
