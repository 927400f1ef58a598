package models

import "time"

// LogEntry represents metadata for a single diagnostic log file.
type LogEntry struct {
	SessionID string    `yaml:"session_id"`
	Path      string    `yaml:"path"`
	Size      int64     `yaml:"size"`
	StartedAt time.Time `yaml:"started_at"`
}
