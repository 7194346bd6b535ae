// Package logger holds the process-wide structured logger shared by the
// allocator, the trace replayer and the command-line tools.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It discards all output until Init enables it.
var L = Discard()

const (
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool         // If false, all logging is discarded
	Writer  io.Writer    // Destination; takes precedence over LogDir
	LogDir  string       // Directory for daily log files
	Prefix  string       // Log file name prefix. Default: "mmlab-"
	Level   slog.Leveler // Minimum level. Default: slog.LevelInfo
	JSON    bool         // JSON handler instead of text
}

// Init configures logging. Call from main() before any log calls.
func Init(opts Options) error {
	if !opts.Enabled {
		L = Discard()
		return nil
	}

	w := opts.Writer
	if w == nil {
		f, err := openLogFile(opts)
		if err != nil {
			return err
		}
		w = f
	}

	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}

	if opts.JSON || opts.Writer == nil {
		L = slog.New(slog.NewJSONHandler(w, hopts))
	} else {
		L = slog.New(slog.NewTextHandler(w, hopts))
	}
	return nil
}

// New returns a text logger writing to w at the given level. Used by callers
// that want a private logger instead of replacing L.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. Its handler reports every
// level as disabled, so call sites skip building records.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// FromEnv returns a debug logger on stderr when the named environment
// variable is non-empty, and fallback otherwise.
func FromEnv(name string, fallback *slog.Logger) *slog.Logger {
	if os.Getenv(name) == "" {
		return fallback
	}
	return New(os.Stderr, slog.LevelDebug)
}

func openLogFile(opts Options) (*os.File, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "mmlab-"
	}

	logDir := opts.LogDir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir = filepath.Join(home, ".mmlab", "logs")
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	cleanOldLogs(logDir, prefix)

	name := filepath.Join(logDir, prefix+time.Now().Format("2006-01-02")+logSuffix)
	return os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// cleanOldLogs removes log files older than retentionDays. Best-effort.
func cleanOldLogs(logDir, prefix string) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// mmlab-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), prefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
