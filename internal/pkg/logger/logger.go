package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *slog.Logger
	once         sync.Once
)

// Options configures the process logger. File, when set, receives a copy of
// every record through a rotating writer.
type Options struct {
	Level  string
	Format string // json | text
	File   string
}

func Init(level string) {
	Setup(Options{Level: level})
}

// Setup installs the global logger. Only the first call has any effect.
func Setup(opts Options) {
	once.Do(func() {
		var out io.Writer = os.Stdout
		if opts.File != "" {
			if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err == nil {
				out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
					Filename:   opts.File,
					MaxSize:    100,
					MaxBackups: 5,
					MaxAge:     14,
					Compress:   true,
				})
			}
		}
		globalLogger = slog.New(newHandler(out, opts))
		slog.SetDefault(globalLogger)
	})
}

func newHandler(out io.Writer, opts Options) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "text") {
		return slog.NewTextHandler(out, handlerOpts)
	}
	// Use JSON handler for production-ready structured logging
	return slog.NewJSONHandler(out, handlerOpts)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the global logger instance
func Get() *slog.Logger {
	if globalLogger == nil {
		Init("info")
	}
	return globalLogger
}

// Helper functions for quick logging
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

func LogError(ctx context.Context, err error, msg string, args ...any) {
	if err == nil {
		return
	}
	args = append(args, slog.String("error", err.Error()))
	Get().ErrorContext(ctx, msg, args...)
}
