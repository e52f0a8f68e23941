package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"snapshot-sweeper/internal/config"
)

// New creates a stderr logger at info level
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// NewWithConfig creates a logger honouring the configured level and optional
// log file. The file is rotated once it is older than RotationDays.
func NewWithConfig(cfg config.LoggingCfg) (*logrus.Logger, io.Closer, error) {
	l := New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, &config.Error{Field: "logging.level", Err: err}
	}
	l.SetLevel(level)

	if cfg.File == "" {
		return l, io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure log directory: %w", err)
	}

	rotateDays := cfg.RotationDays
	if rotateDays <= 0 {
		rotateDays = 30
	}
	rotateLogsIfNeeded(cfg.File, rotateDays, time.Now())

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.File, err)
	}

	l.SetOutput(io.MultiWriter(os.Stderr, f))
	return l, f, nil
}

// rotateLogsIfNeeded renames the log once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int, now time.Time) {
	info, err := os.Stat(logPath)
	if err != nil {
		// Log file doesn't exist yet, nothing to rotate
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		rotatedPath := logPath + "." + info.ModTime().Format("20060102-150405")

		if err := os.Rename(logPath, rotatedPath); err != nil {
			logrus.WithError(err).Warn("Failed to rotate log file")
			return
		}

		cleanupOldLogs(logPath, rotationDays, now)
	}
}

// cleanupOldLogs removes rotated log files older than rotation days
func cleanupOldLogs(logPath string, rotationDays int, now time.Time) {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, entry.Name())
			if err := os.Remove(fullPath); err != nil {
				logrus.WithError(err).WithField("path", fullPath).Warn("Failed to remove old log file")
			}
		}
	}
}
