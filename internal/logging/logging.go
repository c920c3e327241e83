package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	levelMu      sync.RWMutex
	currentLevel LogLevel
	levelOnce    sync.Once

	progressMu  sync.Mutex
	progressTTY = term.IsTerminal(int(os.Stderr.Fd()))
	progressOn  bool
)

// ParseLevel converts a level name to a LogLevel. Unknown names map to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		// Check DEBUG environment variable first
		if debug := os.Getenv("DEBUG"); debug != "" {
			switch strings.ToLower(debug) {
			case "1", "true", "yes", "on":
				currentLevel = LevelDebug
				return
			}
		}

		currentLevel = ParseLevel(os.Getenv("LOG_LEVEL"))
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetLevel overrides the level picked up from the environment.
func SetLevel(level LogLevel) {
	initLevel()
	levelMu.Lock()
	currentLevel = level
	levelMu.Unlock()
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func output(prefix, format string, args ...interface{}) {
	endProgress()
	log.Printf(prefix+format, args...)
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		output("[DEBUG] ", format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		output("[INFO] ", format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		output("[WARN] ", format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		output("[ERROR] ", format, args...)
	}
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	endProgress()
	log.Fatalf("[FATAL] "+format, args...)
}

// Progress reports the state of a long-running operation. On a terminal the
// line is rewritten in place; otherwise it is logged at debug level so that
// redirected output is not flooded.
func Progress(format string, args ...interface{}) {
	if GetLevel() > LevelInfo {
		return
	}
	if !progressTTY {
		Debug(format, args...)
		return
	}

	progressMu.Lock()
	defer progressMu.Unlock()
	fmt.Fprintf(os.Stderr, "\r\033[K"+format, args...)
	progressOn = true
}

func endProgress() {
	progressMu.Lock()
	defer progressMu.Unlock()
	if progressOn {
		fmt.Fprint(os.Stderr, "\n")
		progressOn = false
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
