// Package logger provides structured logging for flowsync.
// Records are written with log/slog: coloured console output through tint
// when attached to a terminal, JSON lines otherwise. When verbose mode is
// enabled via the --verbose flag, debug records are emitted too.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Format selects the record encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = FormatAuto
	level             = new(slog.LevelVar)
	log               = build()
)

// SetVerbose enables or disables debug records.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level from a name: debug, info, warn or error.
// Unknown names select info.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
		verbose = true
		return
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	verbose = false
}

// SetOutput sets the writer records go to.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = build()
}

// SetFormat selects the record encoding.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	format = f
	log = build()
}

// L returns the current logger, for callers that want With or slog.Default.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With returns a logger that adds args to every record.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Debug logs at debug level. args are slog key/value pairs.
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { L().Error(msg, args...) }

// build creates the handler for the current settings. Callers hold mu.
func build() *slog.Logger {
	tty := isTerminal(output)

	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))
	case FormatText:
		return slog.New(tint.NewHandler(output, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    !tty,
		}))
	}

	if tty {
		return slog.New(tint.NewHandler(output, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
	}
	return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
