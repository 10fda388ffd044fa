// Package logger provides the process-wide structured logger.
//
// It is a thin wrapper over log/slog with a runtime-adjustable level and
// format, so packages log through free functions instead of threading a
// logger value everywhere.
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

// Config selects level, format and sink for the process logger.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	mu      sync.RWMutex
	slogger *slog.Logger
	output  io.Writer = os.Stdout
	format            = "text"

	// leveler is shared by every handler built in rebuild, so SetLevel
	// takes effect without swapping the handler.
	leveler = new(slog.LevelVar)
)

func init() {
	leveler.Set(slog.LevelInfo)
	rebuild()
}

// rebuild swaps the handler for the current output and format.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: leveler}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = slog.NewTextHandler(output, opts)
	}

	slogger = slog.New(h)
}

// Init applies the given configuration to the process logger.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, err := openSink(cfg.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		output = w
		mu.Unlock()
	}

	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	rebuild()

	return nil
}

func openSink(name string) (io.Writer, error) {
	switch strings.ToLower(name) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %q: %w", name, err)
		}
		return f, nil
	}
}

// SetLevel adjusts the minimum level at runtime. Unknown values are ignored.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		leveler.Set(slog.LevelDebug)
	case "INFO":
		leveler.Set(slog.LevelInfo)
	case "WARN":
		leveler.Set(slog.LevelWarn)
	case "ERROR":
		leveler.Set(slog.LevelError)
	}
}

// SetFormat switches between text and json output. Unknown values are ignored.
func SetFormat(f string) {
	f = strings.ToLower(f)
	if f != "text" && f != "json" {
		return
	}

	mu.Lock()
	format = f
	mu.Unlock()
	rebuild()
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level with structured key-value fields.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// DebugCtx logs at debug level, prepending any request fields carried by ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	get().DebugContext(ctx, msg, withRequestFields(ctx, args)...)
}

// InfoCtx logs at info level with request fields from ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	get().InfoContext(ctx, msg, withRequestFields(ctx, args)...)
}

// WarnCtx logs at warn level with request fields from ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	get().WarnContext(ctx, msg, withRequestFields(ctx, args)...)
}

// ErrorCtx logs at error level with request fields from ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	get().ErrorContext(ctx, msg, withRequestFields(ctx, args)...)
}

// withRequestFields prepends LogContext fields so they sort first in output.
func withRequestFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := make([]any, 0, 6+len(args))
	if lc.RequestID != "" {
		fields = append(fields, "request_id", lc.RequestID)
	}
	if lc.Username != "" {
		fields = append(fields, "user", lc.Username)
	}
	if lc.ClientIP != "" {
		fields = append(fields, "client_ip", lc.ClientIP)
	}

	return append(fields, args...)
}
