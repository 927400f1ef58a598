// Package supervisor launches the backend service and owns its process for
// the lifetime of the shell.
package supervisor

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labcv/labcv-desktop/internal/logging"
)

// DefaultGracePeriod is how long Stop waits after the termination request
// before force-killing the backend.
const DefaultGracePeriod = 5 * time.Second

// ErrAlreadyRunning is returned by Start while a backend is live.
var ErrAlreadyRunning = errors.New("backend already running")

// Options configures a Supervisor.
type Options struct {
	Logger      zerolog.Logger
	Probe       Probe
	GracePeriod time.Duration
	// Environ returns the inherited environment. Defaults to os.Environ.
	Environ func() []string
}

// Supervisor starts at most one backend process at a time.
type Supervisor struct {
	mu     sync.Mutex
	handle *Handle

	log     zerolog.Logger
	probe   Probe
	grace   time.Duration
	environ func() []string

	terminate func(*os.Process) error
	kill      func(*os.Process) error
}

// New creates a supervisor. Zero-valued options get defaults.
func New(opts Options) *Supervisor {
	probe := opts.Probe
	if probe.Exists == nil || probe.LookPath == nil {
		def := DefaultProbe()
		if probe.Exists == nil {
			probe.Exists = def.Exists
		}
		if probe.LookPath == nil {
			probe.LookPath = def.LookPath
		}
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}

	return &Supervisor{
		log:     logging.Component(opts.Logger, "supervisor"),
		probe:   probe,
		grace:   grace,
		environ: environ,

		terminate: terminate,
		kill:      kill,
	}
}

// Start resolves a launch plan and spawns the backend. It returns as soon as
// the process exists; readiness is the caller's concern. If a backend is
// already live, the tracked handle is returned with ErrAlreadyRunning and
// nothing is spawned. Spawn failures are returned as *LaunchError.
func (s *Supervisor) Start(cfg Config) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil && s.handle.IsRunning() {
		return s.handle, ErrAlreadyRunning
	}

	plan, err := ResolvePlan(cfg, s.probe)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to resolve backend launch plan")
		return nil, err
	}

	cmd := exec.Command(plan.Path, plan.Args...)
	// Later duplicates win in exec.Cmd.Env, so injected values override inherited ones.
	cmd.Env = append(s.environ(), plan.Env...)
	cmd.Dir = plan.Dir
	configureCommand(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &LaunchError{Strategy: plan.Strategy, Path: plan.Path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &LaunchError{Strategy: plan.Strategy, Path: plan.Path, Err: err}
	}

	if err := cmd.Start(); err != nil {
		launchErr := &LaunchError{Strategy: plan.Strategy, Path: plan.Path, Err: err}
		s.log.Error().Err(launchErr).Msg("Failed to start backend")
		return nil, launchErr
	}

	h := &Handle{
		LaunchID:  uuid.New().String(),
		Plan:      *plan,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
	s.handle = h

	log := s.log.With().Str("launch_id", h.LaunchID).Int("pid", h.pid).Logger()
	log.Info().
		Str("strategy", string(plan.Strategy)).
		Str("path", plan.Path).
		Strs("args", plan.Args).
		Msg("Backend started")

	go s.supervise(h, log, stdout, stderr)

	return h, nil
}

// supervise forwards output until both streams close, then reaps the
// process and clears the tracked handle.
func (s *Supervisor) supervise(h *Handle, log zerolog.Logger, stdout, stderr io.ReadCloser) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		forwardLines(stdout, log, streamStdout)
	}()
	go func() {
		defer wg.Done()
		forwardLines(stderr, log, streamStderr)
	}()
	// Wait must not run until the pipes are drained.
	wg.Wait()

	err := h.cmd.Wait()
	code := -1
	if h.cmd.ProcessState != nil {
		code = h.cmd.ProcessState.ExitCode()
	}
	ev := log.Info()
	if code != 0 {
		ev = log.Warn()
	}
	ev.Int("exit_code", code).Dur("uptime", time.Since(h.startedAt)).Msg("Backend exited")

	// Clear before closing done so observers of Done see an empty supervisor.
	s.mu.Lock()
	if s.handle == h {
		s.handle = nil
	}
	h.finish(code, err)
	s.mu.Unlock()
}

// Stop terminates the tracked backend, if any: a graceful request first,
// then a forced kill after the grace period. Failures are logged and never
// returned, and Stop never waits longer than two grace periods. A backend
// that survives the kill remains tracked. Calling it with no backend, or
// twice, is a no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()

	if h == nil || !h.IsRunning() {
		s.log.Debug().Msg("Stop requested with no running backend")
		return
	}

	log := s.log.With().Str("launch_id", h.LaunchID).Int("pid", h.pid).Logger()
	log.Info().Msg("Stopping backend")

	if err := s.terminate(h.cmd.Process); err != nil {
		log.Warn().Err(err).Msg("Failed to request backend termination")
	}

	select {
	case <-h.done:
		return
	case <-time.After(s.grace):
	}

	log.Warn().Dur("grace", s.grace).Msg("Backend did not exit in time, killing")
	if err := s.kill(h.cmd.Process); err != nil {
		log.Error().Err(err).Msg("Failed to kill backend")
	}

	select {
	case <-h.done:
	case <-time.After(s.grace):
		// The handle stays tracked so Start keeps refusing while it lives.
		log.Error().Msg("Backend still running after kill")
	}
}

// IsRunning reports whether a backend is currently live.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil && s.handle.IsRunning()
}

// Handle returns the tracked backend, or nil.
func (s *Supervisor) Handle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}
