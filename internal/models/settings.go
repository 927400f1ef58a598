package models

// BackendConfig describes how the backend service is launched.
type BackendConfig struct {
	Port           string `yaml:"port"`
	Debug          bool   `yaml:"debug"`
	Python         string `yaml:"python"`          // empty = venv, then PATH lookup
	ExecutableName string `yaml:"executable_name"` // packaged backend, relative to install dir
	ScriptName     string `yaml:"script_name"`     // entry point used with the interpreter
}

// WindowConfig holds settings for the application window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// ReadinessConfig holds settings for the backend readiness poll.
type ReadinessConfig struct {
	TimeoutMS  int `yaml:"timeout_ms"`
	IntervalMS int `yaml:"interval_ms"`
}

// Settings represents the shell's settings.
// This corresponds to ~/.labcv/settings.yaml.
type Settings struct {
	Version   int             `yaml:"version"`
	Backend   BackendConfig   `yaml:"backend"`
	Window    WindowConfig    `yaml:"window"`
	Readiness ReadinessConfig `yaml:"readiness"`
}

// Defaults for settings that are not present in the file.
const (
	DefaultPort       = "5000"
	DefaultScriptName = "app.py"
	DefaultTimeoutMS  = 30000
	DefaultIntervalMS = 200
)

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Backend: BackendConfig{
			Port:           DefaultPort,
			Debug:          false,
			ExecutableName: DefaultExecutableName(),
			ScriptName:     DefaultScriptName,
		},
		Window: WindowConfig{
			Title:  "LabCV",
			Width:  1000,
			Height: 800,
		},
		Readiness: ReadinessConfig{
			TimeoutMS:  DefaultTimeoutMS,
			IntervalMS: DefaultIntervalMS,
		},
	}
}

// FillDefaults replaces zero values (typically fields missing from an older
// settings file) with their defaults.
func (s *Settings) FillDefaults() {
	d := NewSettings()
	if s.Version == 0 {
		s.Version = d.Version
	}
	if s.Backend.Port == "" {
		s.Backend.Port = d.Backend.Port
	}
	if s.Backend.ExecutableName == "" {
		s.Backend.ExecutableName = d.Backend.ExecutableName
	}
	if s.Backend.ScriptName == "" {
		s.Backend.ScriptName = d.Backend.ScriptName
	}
	if s.Window.Title == "" {
		s.Window.Title = d.Window.Title
	}
	if s.Window.Width <= 0 {
		s.Window.Width = d.Window.Width
	}
	if s.Window.Height <= 0 {
		s.Window.Height = d.Window.Height
	}
	if s.Readiness.TimeoutMS <= 0 {
		s.Readiness.TimeoutMS = d.Readiness.TimeoutMS
	}
	if s.Readiness.IntervalMS <= 0 {
		s.Readiness.IntervalMS = d.Readiness.IntervalMS
	}
}
