package models

import "runtime"

// DefaultExecutableName returns the file name of the packaged backend for the
// current OS.
func DefaultExecutableName() string {
	if runtime.GOOS == "windows" {
		return "labcv_backend.exe"
	}
	return "labcv_backend"
}
