package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labcv/labcv-desktop/internal/models"
)

const (
	logTimeLayout = "2006-01-02T15-04-05"
	logExt        = ".log"

	// MaxLogFiles is the number of session logs kept by PruneLogs.
	MaxLogFiles = 20
)

// CreateLogFile creates the diagnostic log for one shell session in
// ~/.labcv/logs/. The file name carries the start time and session ID.
func CreateLogFile(sessionID string, startedAt time.Time) (*os.File, *models.LogEntry, error) {
	if err := EnsureGlobalLogsDir(); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure logs dir: %w", err)
	}

	logsDir, err := GlobalLogsDir()
	if err != nil {
		return nil, nil, err
	}

	name := logFileName(sessionID, startedAt)
	path := filepath.Join(logsDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file: %w", err)
	}

	return f, &models.LogEntry{
		SessionID: sessionID,
		Path:      path,
		StartedAt: startedAt.UTC().Truncate(time.Second),
	}, nil
}

func logFileName(sessionID string, startedAt time.Time) string {
	return startedAt.UTC().Format(logTimeLayout) + "_" + sessionID + logExt
}

// parseLogFileName is the inverse of logFileName.
func parseLogFileName(name string) (string, time.Time, bool) {
	if !strings.HasSuffix(name, logExt) {
		return "", time.Time{}, false
	}
	stem := strings.TrimSuffix(name, logExt)
	ts, sessionID, ok := strings.Cut(stem, "_")
	if !ok || sessionID == "" {
		return "", time.Time{}, false
	}
	startedAt, err := time.Parse(logTimeLayout, ts)
	if err != nil {
		return "", time.Time{}, false
	}
	return sessionID, startedAt, true
}

// ListLogs returns metadata for every session log (newest first).
func ListLogs() ([]*models.LogEntry, error) {
	logsDir, err := GlobalLogsDir()
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var logs []*models.LogEntry
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		sessionID, startedAt, ok := parseLogFileName(e.Name())
		if !ok {
			continue
		}
		entry := &models.LogEntry{
			SessionID: sessionID,
			Path:      filepath.Join(logsDir, e.Name()),
			StartedAt: startedAt,
		}
		if fi, err := e.Info(); err == nil {
			entry.Size = fi.Size()
		}
		logs = append(logs, entry)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartedAt.After(logs[j].StartedAt)
	})

	return logs, nil
}

// ReadLatestLog returns the newest session log and its content.
func ReadLatestLog() (*models.LogEntry, string, error) {
	logs, err := ListLogs()
	if err != nil {
		return nil, "", err
	}
	if len(logs) == 0 {
		return nil, "", fmt.Errorf("no logs found")
	}

	data, err := os.ReadFile(logs[0].Path)
	if err != nil {
		return nil, "", fmt.Errorf("log not found: %w", err)
	}
	return logs[0], string(data), nil
}

// PruneLogs removes all but the newest keep session logs.
func PruneLogs(keep int) error {
	logs, err := ListLogs()
	if err != nil {
		return err
	}
	if len(logs) <= keep {
		return nil
	}
	for _, entry := range logs[keep:] {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", entry.Path, err)
		}
	}
	return nil
}
