// Package config handles configuration loading, saving, and path management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// GlobalDirName is the name of the per-user LabCV directory.
	GlobalDirName = ".labcv"

	// LogsDirName is the name of the diagnostic logs directory.
	LogsDirName = "logs"

	// ProfileDirName is the name of the browser profile directory used by the window.
	ProfileDirName = "chrome-profile"
)

// File names
const (
	InstanceFileName = "instance.yaml"
	SettingsFileName = "settings.yaml"
)

// Environment variables read by the shell.
const (
	EnvHome         = "LABCV_HOME"
	EnvGlobalDir    = "LABCV_CONFIG_DIR"
	EnvReadyTimeout = "LABCV_READY_TIMEOUT"
	EnvPort         = "FLASK_PORT"
	EnvPython       = "PYTHON"
)

// GlobalDir returns the path to the per-user directory (~/.labcv/).
// LABCV_CONFIG_DIR overrides it.
func GlobalDir() (string, error) {
	if dir := os.Getenv(EnvGlobalDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

func globalFile(name string) (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// GlobalInstanceFile returns the path to the instance.yaml file.
func GlobalInstanceFile() (string, error) {
	return globalFile(InstanceFileName)
}

// GlobalSettingsFile returns the path to the settings.yaml file.
func GlobalSettingsFile() (string, error) {
	return globalFile(SettingsFileName)
}

// GlobalLogsDir returns the path to the logs directory.
func GlobalLogsDir() (string, error) {
	return globalFile(LogsDirName)
}

// GlobalProfileDir returns the path to the window's browser profile.
func GlobalProfileDir() (string, error) {
	return globalFile(ProfileDirName)
}

// EnsureGlobalDir creates the per-user directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// EnsureGlobalLogsDir creates the logs directory if it doesn't exist.
func EnsureGlobalLogsDir() error {
	dir, err := GlobalLogsDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// InstallDir returns the directory the packaged backend, entry script and
// virtual environment are resolved against: LABCV_HOME when set, otherwise
// the directory holding the running executable.
func InstallDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return filepath.Abs(dir)
	}
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return filepath.Dir(execPath), nil
}
