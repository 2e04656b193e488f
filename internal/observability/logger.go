package observability

import (
	"context"
	"io"
	"log/slog"
	"os"

	"kitchen-backoffice/internal/domain"
)

type contextKey string

const (
	correlationIDKey       contextKey = "correlation_id"
	parentCorrelationIDKey contextKey = "parent_correlation_id"
	principalKey           contextKey = "principal"
)

var logger *slog.Logger

// InitLogger initializes the global structured logger
func InitLogger(level, format string) {
	SetLogger(NewLogger(os.Stdout, level, format))
}

// NewLogger builds a JSON or text logger writing to w.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: level == "debug",
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetLogger replaces the global logger
func SetLogger(l *slog.Logger) {
	logger = l
	slog.SetDefault(l)
}

// FromContext returns a logger with the correlation id and the resolved
// principal attached, when present.
func FromContext(ctx context.Context) *slog.Logger {
	base := logger
	if base == nil {
		// Fallback to default logger if not initialized
		base = slog.Default()
	}

	attrs := make([]any, 0, 4)

	if id := CorrelationID(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if parent := ParentCorrelationID(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_correlation_id", parent))
	}
	if p, ok := PrincipalFromContext(ctx); ok && p.Kind() != domain.PrincipalAnonymous {
		attrs = append(attrs, slog.Group("principal",
			slog.String("kind", string(p.Kind())),
			slog.String("subject", p.Subject()),
		))
	}

	if len(attrs) > 0 {
		return base.With(attrs...)
	}
	return base
}

// WithCorrelationID adds the request correlation id to ctx
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation id stored in ctx, or ""
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithParentCorrelationID records the caller's correlation id
func WithParentCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, parentCorrelationIDKey, id)
}

// ParentCorrelationID returns the caller's correlation id, or ""
func ParentCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(parentCorrelationIDKey).(string)
	return id
}

// WithPrincipal attaches the resolved principal to ctx
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached by the tenant stage
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}

// parseLevel converts string level to slog.Level
func parseLevel(level string) slog.Level {
	switch level {
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

// Info logs at info level
func Info(msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	} else {
		slog.Info(msg, args...)
	}
}

// Error logs at error level
func Error(msg string, args ...any) {
	if logger != nil {
		logger.Error(msg, args...)
	} else {
		slog.Error(msg, args...)
	}
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	} else {
		slog.Warn(msg, args...)
	}
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	if logger != nil {
		logger.Debug(msg, args...)
	} else {
		slog.Debug(msg, args...)
	}
}
