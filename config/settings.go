package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// Settings are the last-used search options, restored at startup
type Settings struct {
	Directory     string `yaml:"directory"`
	Masks         string `yaml:"masks"`
	Pattern       string `yaml:"pattern"`
	Replacement   string `yaml:"replacement"`
	Regex         bool   `yaml:"regex"`
	CaseSensitive bool   `yaml:"case_sensitive"`
	Recurse       bool   `yaml:"recurse"`
	Archives      bool   `yaml:"archives"`
}

// DefaultSettings returns the settings used when nothing was saved
func DefaultSettings() Settings {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return Settings{
		Directory: dir,
		Masks:     DefaultMasks,
		Recurse:   true,
	}
}

// DefaultSettingsPath returns $XDG_CONFIG_HOME/far/settings.yaml, or the
// platform config directory equivalent.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "far", "settings.yaml")
}

// LoadSettings reads settings from path. A missing or unreadable file
// yields DefaultSettings; fields absent from the file keep their defaults.
func LoadSettings(path string) Settings {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	loaded := s
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return s
	}
	if loaded.Masks == "" {
		loaded.Masks = DefaultMasks
	}
	return loaded
}

// SaveSettings writes s to path atomically under an exclusive lock on
// path+".lock". When another process holds the lock the write is skipped.
func SaveSettings(path string, s Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil
	}
	defer lock.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
