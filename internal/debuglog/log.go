// Package debuglog is a small leveled logger writing to a file. The terminal
// belongs to the UI, so nothing is ever written to stdout or stderr.
package debuglog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level is the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name. Unknown names yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF", "NONE":
		return LevelOff
	default:
		return LevelInfo
	}
}

var (
	mu      sync.Mutex
	current = LevelOff
	logger  *log.Logger
	closer  io.Closer
)

// DefaultPath returns $XDG_RUNTIME_DIR/pneo/pneo.log, falling back to the
// system temp directory.
func DefaultPath() string {
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "pneo", "pneo.log")
}

// Setup opens path (DefaultPath when empty) for appending and sets the level.
// LevelOff disables logging without touching the filesystem.
func Setup(level Level, path string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	current = level
	if level == LevelOff {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	closer = f
	logger = log.New(f, "pneo ", log.LstdFlags|log.Lmicroseconds)
	return nil
}

// SetOutput routes log lines to w. Used by tests.
func SetOutput(level Level, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	current = level
	logger = log.New(w, "", 0)
}

// Close releases the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	logger = nil
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

func logf(level Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil || level < current {
		return
	}
	logger.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...any) { logf(LevelDebug, format, args...) }

func Infof(format string, args ...any) { logf(LevelInfo, format, args...) }

func Warnf(format string, args ...any) { logf(LevelWarn, format, args...) }

func Errorf(format string, args ...any) { logf(LevelError, format, args...) }
