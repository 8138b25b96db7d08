package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or one writing to slog.Default
// under the "unknown" component.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Middleware stores a per-request logger in the context. requestID, when
// not nil, supplies the request_id attribute; it must run after whatever
// assigns the ID.
func Middleware(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger
			if requestID != nil {
				if id := requestID(r); id != "" {
					reqLogger = logger.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), reqLogger)))
		})
	}
}

// StructuredLogger writes the service's recurring events with a fixed set
// of fields, so they can be queried the same way across components.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart is at debug level; LogHTTPEnd carries the same request fields.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs 4xx as warnings and 5xx as errors.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, statusLevel(statusCode), "HTTP request completed", fields.ToSlice()...)
}

func statusLevel(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// LogTransactionMutation logs a successful create, update or delete. op is
// one of OpCreate, OpUpdate or OpDelete.
func (sl *StructuredLogger) LogTransactionMutation(ctx context.Context, op, id, txType, category string, amountCents int64) {
	fields := NewFields().
		WithTransaction(id, txType, category, amountCents).
		WithOperation(op).
		WithComponent(ComponentLedger)

	sl.logger.Logger.InfoContext(ctx, "Transaction "+op+"d", fields.ToSlice()...)
}

// LogReport logs a built report and what happened to its alert.
func (sl *StructuredLogger) LogReport(ctx context.Context, userID, timeframe string, percentage float64, outcome string) {
	fields := NewFields().
		WithUser(userID).
		WithAlert(percentage, outcome).
		WithOperation(OpReport).
		WithComponent(ComponentReport)
	fields[FieldTimeframe] = timeframe

	sl.logger.Logger.DebugContext(ctx, "Report built", fields.ToSlice()...)
}
