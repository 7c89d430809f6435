// Package logging provides structured logging for quotesync on top of slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// Options configures the logger.
type Options struct {
	Level     slog.Level
	Output    io.Writer // defaults to os.Stderr
	JSON      bool
	AddSource bool
}

// DefaultOptions returns options suitable for CLI usage: warnings and
// errors only, text format on stderr.
func DefaultOptions() Options {
	return Options{
		Level:  slog.LevelWarn,
		Output: os.Stderr,
	}
}

// New creates a logger with the given options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(opts.Output, ho))
	}
	return slog.New(slog.NewTextHandler(opts.Output, ho))
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the package logger, creating it on first use.
func Default() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = New(DefaultOptions())
	}
	return current
}

// SetDefault replaces the package logger and slog's default.
func SetDefault(l *slog.Logger) {
	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
}

// With returns a child of the default logger carrying args.
func With(args ...any) *slog.Logger {
	return Default().With(args...)
}

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Attribute keys shared across packages.
const (
	KeyQuote     = "quote"
	KeyRemote    = "remote_id"
	KeyOperation = "operation"
	KeyCount     = "count"
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyPath      = "path"
)

// Quote returns an attribute naming a quote by local id.
func Quote(localID string) slog.Attr { return slog.String(KeyQuote, localID) }

// Remote returns an attribute naming a quote by remote id.
func Remote(remoteID string) slog.Attr { return slog.String(KeyRemote, remoteID) }

// Operation returns an attribute naming the operation in progress.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Count returns an attribute for item counts.
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

// Path returns an attribute for a file path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Err returns an attribute for an error. A nil error yields an empty
// attribute, which slog drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}

// Timer logs the elapsed time of op at debug level when the returned
// function is called.
//
//	defer logging.Timer("sync")()
func Timer(op string) func() {
	start := time.Now()
	return func() {
		Debug("operation finished", Operation(op), slog.Duration(KeyDuration, time.Since(start)))
	}
}
