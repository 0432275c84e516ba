// Package logger owns the process-wide structured logger. Settlement is an
// audit-sensitive path, so everything goes to stdout as JSON for ingestion.
package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	base *slog.Logger
	once sync.Once
)

// Init installs the JSON logger at the configured level. Level names follow
// slog ("debug", "info", "warn", "error"); anything unrecognized means info.
// First call wins; later calls are no-ops.
func Init(level string) {
	once.Do(func() {
		var lv slog.Level
		if err := lv.UnmarshalText([]byte(level)); err != nil {
			lv = slog.LevelInfo
		}
		base = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
		slog.SetDefault(base)
	})
}

func get() *slog.Logger {
	if base == nil {
		Init("info")
	}
	return base
}

func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }

// LogError records err as a structured field alongside the message. A nil
// error logs nothing, so callers can pass through failure paths unguarded.
func LogError(ctx context.Context, err error, msg string, args ...any) {
	if err == nil {
		return
	}
	get().ErrorContext(ctx, msg, append(args, slog.String("error", err.Error()))...)
}
