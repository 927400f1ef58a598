package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/labcv/labcv-desktop/internal/config"
	"github.com/labcv/labcv-desktop/internal/logging"
	"github.com/labcv/labcv-desktop/internal/models"
	"github.com/labcv/labcv-desktop/internal/readiness"
	"github.com/labcv/labcv-desktop/internal/shell"
	"github.com/labcv/labcv-desktop/internal/supervisor"
	"github.com/labcv/labcv-desktop/internal/tray"
	"github.com/labcv/labcv-desktop/internal/window"
)

var verbose bool

// runFlags are the root command's flags. Zero values leave settings alone.
type runFlags struct {
	port         string
	headless     bool
	readyTimeout time.Duration
	installDir   string
}

var shellFlags runFlags

func init() {
	f := rootCmd.Flags()
	f.StringVar(&shellFlags.port, "port", "", "Backend port (default from settings or FLASK_PORT, else 5000)")
	f.BoolVar(&shellFlags.headless, "headless", false, "Run the backend without a window or tray")
	f.DurationVar(&shellFlags.readyTimeout, "ready-timeout", 0, "How long to wait for the backend before showing the UI (default 30s)")
	f.StringVar(&shellFlags.installDir, "install-dir", "", "Directory holding the backend (default LABCV_HOME, else next to this executable)")
}

// applyFlags overlays command-line flags on settings.
func applyFlags(settings *models.Settings, fl runFlags) error {
	if fl.port != "" {
		settings.Backend.Port = fl.port
	}
	if err := config.ValidatePort(settings.Backend.Port); err != nil {
		return err
	}
	if fl.readyTimeout < 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", fl.readyTimeout)
	}
	if fl.readyTimeout > 0 {
		settings.Readiness.TimeoutMS = int(fl.readyTimeout / time.Millisecond)
	}
	return nil
}

func backendConfig(settings *models.Settings, installDir string) supervisor.Config {
	return supervisor.Config{
		Port:           settings.Backend.Port,
		Debug:          settings.Backend.Debug,
		Python:         settings.Backend.Python,
		InstallDir:     installDir,
		ExecutableName: settings.Backend.ExecutableName,
		ScriptName:     settings.Backend.ScriptName,
	}
}

func readyTimeout(settings *models.Settings) time.Duration {
	return time.Duration(settings.Readiness.TimeoutMS) * time.Millisecond
}

func newGate(settings *models.Settings, log zerolog.Logger) *readiness.Gate {
	gate := readiness.New(log)
	gate.Interval = time.Duration(settings.Readiness.IntervalMS) * time.Millisecond
	return gate
}

func runShell(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := applyFlags(settings, shellFlags); err != nil {
		return err
	}

	installDir := shellFlags.installDir
	if installDir == "" {
		installDir, err = config.InstallDir()
		if err != nil {
			return fmt.Errorf("failed to locate install directory: %w", err)
		}
	}

	if err := config.EnsureGlobalDir(); err != nil {
		return fmt.Errorf("failed to create global directory: %w", err)
	}
	if err := config.EnsureSettingsFile(); err != nil {
		return fmt.Errorf("failed to write default settings: %w", err)
	}

	running, info, err := config.IsInstanceRunning()
	if err != nil {
		return fmt.Errorf("failed to check for a running instance: %w", err)
	}
	if running {
		return fmt.Errorf("LabCV is already running (PID %d, %s)", info.PID, info.URL())
	}

	sessionID := uuid.NewString()
	logFile, _, err := config.CreateLogFile(sessionID, time.Now())
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logging.New(logging.Options{Console: os.Stderr, File: logFile, Verbose: verbose}).
		With().Str("session_id", sessionID).Logger()
	if err := config.PruneLogs(config.MaxLogFiles); err != nil {
		log.Warn().Err(err).Msg("Failed to prune old logs")
	}
	log.Info().
		Str("install_dir", installDir).
		Str("port", settings.Backend.Port).
		Bool("headless", shellFlags.headless).
		Msg("Starting LabCV")

	gate := newGate(settings, log)
	instance := models.NewInstanceInfo(gate.Host, settings.Backend.Port, os.Getpid())
	if err := config.SaveInstanceInfo(instance); err != nil {
		return fmt.Errorf("failed to write instance info: %w", err)
	}

	opts := shell.Options{
		Backend:       shell.SupervisorBackend(supervisor.New(supervisor.Options{Logger: log})),
		BackendConfig: backendConfig(settings, installDir),
		Gate:          gate,
		ReadyTimeout:  readyTimeout(settings),
		Logger:        log,
		OnBackendStarted: func(p shell.Process) {
			instance.BackendPID = p.PID()
			if h, ok := p.(*supervisor.Handle); ok {
				instance.LaunchID = h.LaunchID
			}
			if err := config.SaveInstanceInfo(instance); err != nil {
				log.Warn().Err(err).Msg("Failed to update instance info")
			}
		},
		OnShutdown: func() {
			if err := config.RemoveInstanceInfo(); err != nil {
				log.Warn().Err(err).Msg("Failed to remove instance info")
			}
		},
	}

	if shellFlags.headless {
		app := shell.New(opts)
		return app.RunHeadless(cmd.Context(), cmd.OutOrStdout())
	}

	runWithTray(cmd.Context(), opts, settings, log)
	return nil
}

// runWithTray runs the shell with a tray icon. It blocks the main goroutine
// until the tray exits; systray requires this on macOS.
func runWithTray(ctx context.Context, opts shell.Options, settings *models.Settings, log zerolog.Logger) {
	profileDir, err := config.GlobalProfileDir()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve browser profile dir, using a temporary one")
	}

	opts.OpenWindow = func() (shell.Window, error) {
		w, err := window.Open(window.Options{
			Title:      settings.Window.Title,
			Width:      settings.Window.Width,
			Height:     settings.Window.Height,
			ProfileDir: profileDir,
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	opts.OnStatus = tray.UpdateStatus
	opts.QuitUI = tray.Quit

	app := shell.New(opts)

	onStart := func() {
		app.Start(ctx)

		// Quit tray on SIGINT/SIGTERM
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
			app.Quit()
		}()
	}

	// This blocks the main goroutine until tray exits.
	tray.Run(app, onStart, app.Shutdown)
	log.Info().Msg("LabCV stopped")
}
