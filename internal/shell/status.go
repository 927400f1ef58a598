package shell

import "fmt"

// FormatStatus renders the backend status line shown in the tray.
func FormatStatus(running bool, pid, exitCode int) string {
	if running {
		return fmt.Sprintf("Backend: running (PID %d)", pid)
	}
	if pid == 0 {
		return "Backend: not running"
	}
	return fmt.Sprintf("Backend: exited (code %d)", exitCode)
}
