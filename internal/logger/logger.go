// Package logger configures the process-wide slog handler.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "PVTAG_LOG"

func levelFromString(s string) (l slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return slog.LevelDebug, true
	case "info", "inf":
		return slog.LevelInfo, true
	case "warn", "wrn", "warning":
		return slog.LevelWarn, true
	case "error", "err":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ValidLevel reports whether s names a log level.
func ValidLevel(s string) bool {
	_, ok := levelFromString(s)
	return ok
}

// Level resolves the effective level: PVTAG_LOG wins over the configured
// value, and anything unrecognized falls back to info.
func Level(configured string) slog.Level {
	if env, ok := os.LookupEnv(EnvLevel); ok {
		if l, ok := levelFromString(env); ok {
			return l
		}
	}
	l, _ := levelFromString(configured)
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// InitLogger installs a text handler writing to path. A path of "-" logs to
// stderr. The returned closer releases the log file.
func InitLogger(path, level string) (io.Closer, error) {
	opts := &slog.HandlerOptions{Level: Level(level)}

	if path == "-" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return nopCloser{}, nil
	}

	logDir := filepath.Dir(path)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// slog orders records as time, level, msg, then attributes.
	handler := slog.NewTextHandler(logFile, opts)
	slog.SetDefault(slog.New(handler))
	return logFile, nil
}
