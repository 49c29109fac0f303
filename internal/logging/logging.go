// Package logging provides the structured LoggerV2 used across the service.
// Output is JSON, one object per line, written through log/slog.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Fields are structured key/value pairs attached to a log line.
type Fields map[string]interface{}

var (
	level          = new(slog.LevelVar)
	output         io.Writer = os.Stdout
	exit                     = os.Exit
	defaultLogger            = NewLoggerV2("fulfillment-service")
)

// SetLevel sets the minimum level for every logger. Unknown values mean info.
func SetLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// LoggerV2 is a component-scoped structured logger.
type LoggerV2 struct {
	logger *slog.Logger
}

// NewLoggerV2 creates a logger tagged with the given component name.
func NewLoggerV2(service string) *LoggerV2 {
	return NewLoggerV2WithWriter(service, output)
}

// NewLoggerV2WithWriter creates a logger writing to w.
func NewLoggerV2WithWriter(service string, w io.Writer) *LoggerV2 {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &LoggerV2{logger: slog.New(h).With("service", service)}
}

func (l *LoggerV2) Debug(msg string, fields ...Fields) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *LoggerV2) Info(msg string, fields ...Fields) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *LoggerV2) Warn(msg string, fields ...Fields) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *LoggerV2) Error(msg string, fields ...Fields) {
	l.log(slog.LevelError, msg, fields)
}

// Fatal logs at error level and exits the process.
func (l *LoggerV2) Fatal(msg string, fields ...Fields) {
	l.log(slog.LevelError, msg, fields)
	exit(1)
}

func (l *LoggerV2) log(lvl slog.Level, msg string, fields []Fields) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, lvl) {
		return
	}
	l.logger.LogAttrs(ctx, lvl, msg, toAttrs(fields)...)
}

func toAttrs(fields []Fields) []slog.Attr {
	var attrs []slog.Attr
	for _, f := range fields {
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, f[k]))
		}
	}
	return attrs
}

// Info logs through the process-wide default logger.
func Info(msg string, fields ...Fields) {
	defaultLogger.Info(msg, fields...)
}

// Infof logs a formatted message through the default logger.
func Infof(format string, args ...interface{}) {
	defaultLogger.Info(fmt.Sprintf(format, args...))
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the correlation id stored by WithRequestID, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
