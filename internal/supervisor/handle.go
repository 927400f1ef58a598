package supervisor

import (
	"os/exec"
	"time"
)

// Handle is one launched backend process.
type Handle struct {
	LaunchID string
	Plan     Plan

	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	done      chan struct{}

	// Set before done is closed.
	exitCode int
	exitErr  error
}

// PID returns the operating-system process ID.
func (h *Handle) PID() int {
	return h.pid
}

// Strategy returns how the backend was launched.
func (h *Handle) Strategy() Strategy {
	return h.Plan.Strategy
}

// StartedAt returns when the process was spawned.
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}

// Done returns a channel that is closed when the process has exited and
// been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsRunning returns true if the process has not exited yet.
func (h *Handle) IsRunning() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code and true once the process has exited.
// A process killed by a signal reports -1.
func (h *Handle) ExitCode() (int, bool) {
	select {
	case <-h.done:
		return h.exitCode, true
	default:
		return 0, false
	}
}

// ExitErr returns the error from waiting on the process (nil if it exited
// cleanly or is still running).
func (h *Handle) ExitErr() error {
	select {
	case <-h.done:
		return h.exitErr
	default:
		return nil
	}
}

func (h *Handle) finish(code int, err error) {
	h.exitCode = code
	h.exitErr = err
	close(h.done)
}
