// Package logger provides leveled logging for docqa.
//
// The package-level functions keep the printf style used across the codebase
// and route through log/slog, so the same calls render as coloured lines for
// the CLI or as JSON for the HTTP server. Debug output is only produced when
// verbose mode is enabled via the --verbose flag.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Output formats.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

var (
	mu       sync.RWMutex
	verbose  bool
	minLevel           = slog.LevelWarn
	format             = FormatPretty
	output   io.Writer = os.Stderr
	base               = build()
)

// build creates the slog logger for the current settings (caller must hold lock).
func build() *slog.Logger {
	lvl := minLevel
	if verbose {
		lvl = slog.LevelDebug
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(NewPrettyHandler(output, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: lvl},
		NoColor:  !isTerminal(output),
	}))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level logged when verbose mode is off.
// The CLI defaults to warnings; the server lowers this to info.
func SetLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
	base = build()
}

// SetFormat selects "pretty" or "json" output.
func SetFormat(f string) error {
	f = strings.ToLower(strings.TrimSpace(f))
	if f != FormatPretty && f != FormatJSON {
		return fmt.Errorf("unknown log format %q (want %s or %s)", f, FormatPretty, FormatJSON)
	}
	mu.Lock()
	defer mu.Unlock()
	format = f
	base = build()
	return nil
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = build()
}

// Logger returns the underlying structured logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Log emits a structured record with key/value attributes.
func Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	Logger().Log(ctx, level, msg, args...)
}

func logf(level slog.Level, format string, args ...any) {
	l := Logger()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(slog.LevelDebug, format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	logf(slog.LevelInfo, format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	logf(slog.LevelWarn, format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	logf(slog.LevelError, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose && format == FormatPretty {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
