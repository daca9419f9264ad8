package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// newLogger builds the process-wide slog.Logger for one CLI
// invocation: level from --log-level / QUEUECTL_LOG_LEVEL, output to
// stderr, tee'd (appending) to queuectl.log under logDir, or else under
// --log-dir / QUEUECTL_LOG_DIR if set. The config table's log_dir is not
// consulted, and the log file is not rotated.
func newLogger(logDir string) *slog.Logger {
	level := parseLevel(viper.GetString("log_level"))
	writers := []io.Writer{os.Stderr}

	if logDir == "" {
		logDir = viper.GetString("log_dir")
	}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err == nil {
			path := filepath.Join(logDir, "queuectl.log")
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				writers = append(writers, f)
			}
		}
	}

	out := io.MultiWriter(writers...)
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
