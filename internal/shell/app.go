// Package shell ties the backend supervisor, readiness gate, window and tray
// together into the desktop application.
package shell

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/labcv/labcv-desktop/internal/logging"
	"github.com/labcv/labcv-desktop/internal/supervisor"
)

// Process is one launched backend.
type Process interface {
	PID() int
	Done() <-chan struct{}
	ExitCode() (int, bool)
	ExitErr() error
}

// Backend is the process supervisor as seen by the shell.
type Backend interface {
	Start(cfg supervisor.Config) (Process, error)
	Stop()
	IsRunning() bool
}

// SupervisorBackend adapts a Supervisor to Backend.
func SupervisorBackend(s *supervisor.Supervisor) Backend {
	return supervisorBackend{s}
}

type supervisorBackend struct {
	*supervisor.Supervisor
}

func (b supervisorBackend) Start(cfg supervisor.Config) (Process, error) {
	h, err := b.Supervisor.Start(cfg)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Gate waits for the backend to answer.
type Gate interface {
	Wait(ctx context.Context, port string, timeout time.Duration) error
	URL(port string) string
}

// Window is an application window showing the backend UI.
type Window interface {
	Load(url string) error
	Show() error
	Hide() error
	Close() error
	Done() <-chan struct{}
}

// Options configures an App.
type Options struct {
	Backend       Backend
	BackendConfig supervisor.Config
	Gate          Gate
	ReadyTimeout  time.Duration
	// OpenWindow creates a window. Nil runs without a window.
	OpenWindow func() (Window, error)
	Logger     zerolog.Logger

	// OnStatus receives backend status lines for the tray.
	OnStatus func(text string)
	// OnBackendStarted is called after a successful launch.
	OnBackendStarted func(p Process)
	// OnShutdown runs once, after the backend has been stopped.
	OnShutdown func()
	// QuitUI ends the GUI event loop.
	QuitUI func()
}

// App is the running desktop shell.
type App struct {
	opts Options
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	win     Window
	ready   chan struct{} // closed once the gate has resolved
	backend Process

	shutdownOnce sync.Once
}

// New creates an App.
func New(opts Options) *App {
	return &App{
		opts:  opts,
		log:   logging.Component(opts.Logger, "shell"),
		ready: make(chan struct{}),
	}
}

// URL returns the backend UI address.
func (a *App) URL() string {
	return a.opts.Gate.URL(a.opts.BackendConfig.Port)
}

// Start launches the backend, opens the window on a placeholder page and,
// once the backend answers or the gate times out, loads the backend URL.
// It returns without waiting for readiness; use Ready to observe it.
func (a *App) Start(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.startBackend()

	a.mu.Lock()
	a.openWindowLocked()
	a.mu.Unlock()

	go a.awaitBackend()
}

// Ready is closed once the readiness gate has resolved, ready or not.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

func (a *App) startBackend() {
	h, err := a.opts.Backend.Start(a.opts.BackendConfig)
	if err != nil {
		// The gate will time out and the window shows the connection error.
		a.log.Error().Err(err).Msg("Backend failed to start")
		a.status("Backend: failed to start")
		return
	}

	a.mu.Lock()
	a.backend = h
	a.mu.Unlock()

	a.status(FormatStatus(true, h.PID(), 0))
	if a.opts.OnBackendStarted != nil {
		a.opts.OnBackendStarted(h)
	}
	go a.watchBackend(h)
}

// watchBackend reports a backend exit. Exits are not restarted.
func (a *App) watchBackend(h Process) {
	select {
	case <-h.Done():
	case <-a.ctx.Done():
		return
	}
	code, _ := h.ExitCode()
	a.log.Warn().
		Err(h.ExitErr()).
		Int("pid", h.PID()).
		Int("exit_code", code).
		Msg("Backend exited; it will not be restarted")
	a.status(FormatStatus(false, h.PID(), code))
}

func (a *App) awaitBackend() {
	port := a.opts.BackendConfig.Port
	err := a.opts.Gate.Wait(a.ctx, port, a.opts.ReadyTimeout)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		return
	default:
		a.log.Warn().Err(err).Msg("Backend did not become ready, loading the UI anyway")
	}

	a.mu.Lock()
	close(a.ready)
	win := a.win
	a.mu.Unlock()

	if win != nil {
		a.load(win)
	}
}

func (a *App) load(win Window) {
	url := a.URL()
	if err := win.Load(url); err != nil {
		a.log.Error().Err(err).Str("url", url).Msg("Failed to load backend UI")
		return
	}
	a.log.Info().Str("url", url).Msg("Loaded backend UI")
}

func (a *App) isReady() bool {
	select {
	case <-a.ready:
		return true
	default:
		return false
	}
}

// openWindowLocked opens a window if none is open. Must hold a.mu.
func (a *App) openWindowLocked() {
	if a.opts.OpenWindow == nil || a.win != nil {
		return
	}

	win, err := a.opts.OpenWindow()
	if err != nil {
		a.log.Error().Err(err).Str("url", a.URL()).Msg("Failed to open window; open the URL in a browser instead")
		return
	}
	a.win = win

	// Before readiness the gate goroutine performs the load.
	if a.isReady() {
		go a.load(win)
	}
	go a.watchWindow(win)
}

// watchWindow forgets a window the user closed. The app keeps running in
// the tray.
func (a *App) watchWindow(win Window) {
	<-win.Done()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.win == win {
		a.win = nil
		a.log.Info().Msg("Window closed; LabCV is still running in the tray")
	}
}

// ShowWindow shows the window, opening a new one if it was closed.
func (a *App) ShowWindow() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.win == nil {
		a.openWindowLocked()
		return
	}
	if err := a.win.Show(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to show window")
	}
}

// HideWindow hides the window, if any.
func (a *App) HideWindow() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.win == nil {
		return
	}
	if err := a.win.Hide(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to hide window")
	}
}

// Quit shuts down and ends the GUI loop.
func (a *App) Quit() {
	a.Shutdown()
	if a.opts.QuitUI != nil {
		a.opts.QuitUI()
	}
}

// Shutdown stops the backend and closes the window. Only the first call
// has any effect.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.log.Info().Msg("Shutting down")
		if a.cancel != nil {
			a.cancel()
		}

		a.opts.Backend.Stop()

		a.mu.Lock()
		win := a.win
		a.win = nil
		a.mu.Unlock()
		if win != nil {
			if err := win.Close(); err != nil {
				a.log.Warn().Err(err).Msg("Failed to close window")
			}
		}

		if a.opts.OnShutdown != nil {
			a.opts.OnShutdown()
		}
	})
}

func (a *App) status(text string) {
	if a.opts.OnStatus != nil {
		a.opts.OnStatus(text)
	}
}
