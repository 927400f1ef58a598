package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Strategy names how the backend was launched.
type Strategy string

// Launch strategies, in selection order.
const (
	StrategyPackaged Strategy = "packaged" // self-contained backend executable
	StrategyOverride Strategy = "override" // interpreter named by configuration or PYTHON
	StrategyVenv     Strategy = "venv"     // project-local virtual environment interpreter
	StrategyPath     Strategy = "path"     // generic interpreter found on PATH
)

// Fixed values handed to the backend.
const (
	DefaultPort     = "5000"
	BackendHost     = "127.0.0.1"
	GenericPython   = "python"
	UnbufferedFlag  = "-u"
	EnvBackendPort  = "FLASK_PORT"
	EnvBackendHost  = "FLASK_HOST"
	EnvBackendDebug = "FLASK_DEBUG"
	venvDirName     = ".venv"
)

var (
	// ErrInterpreterNotFound is returned when no interpreter can be resolved.
	ErrInterpreterNotFound = errors.New("no python interpreter found")
	// ErrScriptNotFound is returned when the entry point script is missing.
	ErrScriptNotFound = errors.New("backend entry point not found")
)

// Config describes the backend to launch.
type Config struct {
	Port           string
	Debug          bool
	Python         string // explicit interpreter override
	InstallDir     string
	ExecutableName string
	ScriptName     string
}

// Plan is a fully resolved launch command.
type Plan struct {
	Strategy Strategy
	Path     string
	Args     []string
	Env      []string // injected KEY=VALUE pairs; override inherited values
	Dir      string
}

// Probe abstracts the filesystem and PATH checks made while resolving a plan.
type Probe struct {
	Exists   func(path string) bool
	LookPath func(file string) (string, error)
}

// DefaultProbe checks the real filesystem and PATH.
func DefaultProbe() Probe {
	return Probe{
		Exists: func(path string) bool {
			fi, err := os.Stat(path)
			return err == nil && !fi.IsDir()
		},
		LookPath: exec.LookPath,
	}
}

// LaunchError reports that the backend could not be started.
type LaunchError struct {
	Strategy Strategy
	Path     string
	Err      error
}

func (e *LaunchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("launch backend (%s): %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("launch backend (%s) %s: %v", e.Strategy, e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// BackendEnv returns the variables injected into the backend's environment.
func BackendEnv(cfg Config) []string {
	port := cfg.Port
	if port == "" {
		port = DefaultPort
	}
	debug := "False"
	if cfg.Debug {
		debug = "True"
	}
	return []string{
		EnvBackendPort + "=" + port,
		EnvBackendHost + "=" + BackendHost,
		EnvBackendDebug + "=" + debug,
	}
}

// ResolvePlan selects how to launch the backend. A packaged executable in
// the install dir always wins; otherwise an interpreter runs the entry
// script, chosen from the override, the venv, then PATH.
func ResolvePlan(cfg Config, probe Probe) (*Plan, error) {
	env := BackendEnv(cfg)

	if cfg.ExecutableName != "" {
		exe := filepath.Join(cfg.InstallDir, cfg.ExecutableName)
		if probe.Exists(exe) {
			return &Plan{
				Strategy: StrategyPackaged,
				Path:     exe,
				Env:      env,
				Dir:      cfg.InstallDir,
			}, nil
		}
	}

	strategy, python, err := resolveInterpreter(cfg, probe)
	if err != nil {
		return nil, &LaunchError{Strategy: strategy, Path: python, Err: err}
	}

	script := filepath.Join(cfg.InstallDir, cfg.ScriptName)
	if cfg.ScriptName == "" || !probe.Exists(script) {
		return nil, &LaunchError{Strategy: strategy, Path: script, Err: ErrScriptNotFound}
	}

	return &Plan{
		Strategy: strategy,
		Path:     python,
		Args:     []string{UnbufferedFlag, script},
		Env:      env,
		Dir:      cfg.InstallDir,
	}, nil
}

func resolveInterpreter(cfg Config, probe Probe) (Strategy, string, error) {
	if cfg.Python != "" {
		return StrategyOverride, cfg.Python, nil
	}

	venv := venvPython(cfg.InstallDir, runtime.GOOS)
	if probe.Exists(venv) {
		return StrategyVenv, venv, nil
	}

	path, err := probe.LookPath(GenericPython)
	if err != nil {
		return StrategyPath, GenericPython, fmt.Errorf("%w: %v", ErrInterpreterNotFound, err)
	}
	return StrategyPath, path, nil
}

func venvPython(installDir, goos string) string {
	if goos == "windows" {
		return filepath.Join(installDir, venvDirName, "Scripts", "python.exe")
	}
	return filepath.Join(installDir, venvDirName, "bin", "python")
}
