package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Output formats accepted by NewFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger is a slog.Logger that tags every record with the component that
// wrote it. The component is added per call, so WithComponent never stacks
// attributes.
type Logger struct {
	*slog.Logger
	component string
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewText returns a logfmt-style logger writing to w.
func NewText(w io.Writer, level slog.Level, component string) *Logger {
	return &Logger{
		Logger:    slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		component: component,
	}
}

// NewFormat returns a text or JSON logger. An unknown format is an error and
// yields a text logger.
func NewFormat(w io.Writer, format string, level slog.Level, component string) (*Logger, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return NewText(w, level, component), nil
	case FormatJSON:
		return &Logger{
			Logger:    slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
			component: component,
		}, nil
	}
	return NewText(w, level, component), fmt.Errorf("unknown log format %q", format)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	l.Logger.Log(ctx, level, msg, append([]any{FieldComponent, l.component}, args...)...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, args)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args)
}

// SetDefault installs logger as the slog default, so package-level slog
// calls in the services carry the same handler.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
