// Package logging owns the process-wide structured logger. Records go to a
// rotating JSON log file; until Init is called everything is discarded.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DebugEnv enables debug-level records when set to "1".
const DebugEnv = "CODEWEAVE_DEBUG"

var (
	mu     sync.RWMutex
	logger = slog.New(slog.DiscardHandler)
)

// Options configures Init.
type Options struct {
	Path       string // log file; DefaultPath() when empty
	Debug      bool
	MaxSizeMB  int
	MaxBackups int
}

// DefaultPath returns $XDG_STATE_HOME/codeweave/codeweave.log, falling back
// to ~/.local/state when XDG_STATE_HOME is unset.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("logging: cannot determine home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "codeweave", "codeweave.log"), nil
}

// Init installs a JSON logger writing to a rotating file and returns the
// writer so the caller can close it on exit.
func Init(opts Options) (io.Closer, error) {
	path := opts.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log directory: %w", err)
	}
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     28, // days
	}

	level := slog.LevelInfo
	if opts.Debug || os.Getenv(DebugEnv) == "1" {
		level = slog.LevelDebug
	}
	Set(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	return w, nil
}

// Get returns the current logger.
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Set replaces the process-wide logger.
func Set(l *slog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}
