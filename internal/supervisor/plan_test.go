package supervisor

import (
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func fakeProbe(existing []string, onPath map[string]string) Probe {
	files := make(map[string]bool, len(existing))
	for _, p := range existing {
		files[p] = true
	}
	return Probe{
		Exists: func(path string) bool { return files[path] },
		LookPath: func(file string) (string, error) {
			if p, ok := onPath[file]; ok {
				return p, nil
			}
			return "", exec.ErrNotFound
		},
	}
}

func TestResolvePlan(t *testing.T) {
	dir := filepath.Join("opt", "labcv")
	exe := filepath.Join(dir, "labcv_backend")
	script := filepath.Join(dir, "app.py")
	venv := venvPython(dir, runtime.GOOS)
	systemPython := map[string]string{"python": "/usr/bin/python"}

	base := Config{Port: "5000", InstallDir: dir, ExecutableName: "labcv_backend", ScriptName: "app.py"}
	withOverride := base
	withOverride.Python = "/opt/python3.12/bin/python"

	tests := []struct {
		name         string
		cfg          Config
		existing     []string
		onPath       map[string]string
		wantStrategy Strategy
		wantPath     string
		wantArgs     []string
		wantErr      error
	}{
		{
			name:         "packaged executable wins over everything",
			cfg:          withOverride,
			existing:     []string{exe, script, venv},
			onPath:       systemPython,
			wantStrategy: StrategyPackaged,
			wantPath:     exe,
		},
		{
			name:         "override beats venv",
			cfg:          withOverride,
			existing:     []string{script, venv},
			onPath:       systemPython,
			wantStrategy: StrategyOverride,
			wantPath:     "/opt/python3.12/bin/python",
			wantArgs:     []string{"-u", script},
		},
		{
			name:         "venv beats PATH",
			cfg:          base,
			existing:     []string{script, venv},
			onPath:       systemPython,
			wantStrategy: StrategyVenv,
			wantPath:     venv,
			wantArgs:     []string{"-u", script},
		},
		{
			name:         "PATH interpreter",
			cfg:          base,
			existing:     []string{script},
			onPath:       systemPython,
			wantStrategy: StrategyPath,
			wantPath:     "/usr/bin/python",
			wantArgs:     []string{"-u", script},
		},
		{
			name:     "no interpreter",
			cfg:      base,
			existing: []string{script},
			wantErr:  ErrInterpreterNotFound,
		},
		{
			name:    "missing entry point",
			cfg:     base,
			onPath:  systemPython,
			wantErr: ErrScriptNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ResolvePlan(tt.cfg, fakeProbe(tt.existing, tt.onPath))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolvePlan() error = %v, want %v", err, tt.wantErr)
				}
				var launchErr *LaunchError
				if !errors.As(err, &launchErr) {
					t.Fatalf("ResolvePlan() error %T is not a *LaunchError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePlan() error = %v", err)
			}
			if plan.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %s, want %s", plan.Strategy, tt.wantStrategy)
			}
			if plan.Path != tt.wantPath {
				t.Errorf("Path = %s, want %s", plan.Path, tt.wantPath)
			}
			if !reflect.DeepEqual(plan.Args, tt.wantArgs) {
				t.Errorf("Args = %q, want %q", plan.Args, tt.wantArgs)
			}
			if plan.Dir != dir {
				t.Errorf("Dir = %s, want %s", plan.Dir, dir)
			}
		})
	}
}

func TestResolvePlanGenericInterpreterScenario(t *testing.T) {
	dir := filepath.Join("opt", "labcv")
	script := filepath.Join(dir, "app.py")
	cfg := Config{Port: "5000", InstallDir: dir, ExecutableName: "labcv_backend", ScriptName: "app.py"}

	plan, err := ResolvePlan(cfg, fakeProbe([]string{script}, map[string]string{"python": "python"}))
	if err != nil {
		t.Fatalf("ResolvePlan() error = %v", err)
	}

	if plan.Path != "python" {
		t.Errorf("Path = %s, want python", plan.Path)
	}
	if want := []string{"-u", script}; !reflect.DeepEqual(plan.Args, want) {
		t.Errorf("Args = %q, want %q", plan.Args, want)
	}
	want := []string{"FLASK_PORT=5000", "FLASK_HOST=127.0.0.1", "FLASK_DEBUG=False"}
	if !reflect.DeepEqual(plan.Env, want) {
		t.Errorf("Env = %q, want %q", plan.Env, want)
	}
}

func TestBackendEnv(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "default port",
			cfg:  Config{},
			want: []string{"FLASK_PORT=5000", "FLASK_HOST=127.0.0.1", "FLASK_DEBUG=False"},
		},
		{
			name: "custom port and debug",
			cfg:  Config{Port: "8080", Debug: true},
			want: []string{"FLASK_PORT=8080", "FLASK_HOST=127.0.0.1", "FLASK_DEBUG=True"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BackendEnv(tt.cfg); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BackendEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVenvPython(t *testing.T) {
	if got, want := venvPython("app", "windows"), filepath.Join("app", ".venv", "Scripts", "python.exe"); got != want {
		t.Errorf("windows venv = %s, want %s", got, want)
	}
	if got, want := venvPython("app", "linux"), filepath.Join("app", ".venv", "bin", "python"); got != want {
		t.Errorf("linux venv = %s, want %s", got, want)
	}
}
