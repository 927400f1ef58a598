package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/labcv/labcv-desktop/internal/models"
)

// LoadSettings loads the settings from ~/.labcv/settings.yaml and applies
// environment overrides. If the file doesn't exist, defaults are used.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}
	settings.FillDefaults()
	if err := ApplyEnv(settings, os.LookupEnv); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings saves the settings to ~/.labcv/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}

// EnsureSettingsFile writes the default settings to ~/.labcv/settings.yaml
// if the file doesn't exist yet, so there is something to edit. An existing
// file is left untouched.
func EnsureSettingsFile() error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	if FileExists(path) {
		return nil
	}
	return SaveSettings(models.NewSettings())
}

// ApplyEnv overlays environment variables on settings. lookup is normally
// os.LookupEnv.
func ApplyEnv(settings *models.Settings, lookup func(string) (string, bool)) error {
	if port, ok := lookup(EnvPort); ok && port != "" {
		settings.Backend.Port = port
	}
	if python, ok := lookup(EnvPython); ok && python != "" {
		settings.Backend.Python = python
	}
	if raw, ok := lookup(EnvReadyTimeout); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvReadyTimeout, raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", EnvReadyTimeout, raw)
		}
		settings.Readiness.TimeoutMS = int(d / time.Millisecond)
	}
	return nil
}

// ValidatePort checks that port is a decimal TCP port number.
func ValidatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", port, err)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q: out of range", port)
	}
	return nil
}
