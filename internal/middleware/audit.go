package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"kitchen-backoffice/internal/observability"
	"kitchen-backoffice/internal/ratelimit"
)

const (
	// DefaultSlowRequestThreshold marks requests logged at WARN.
	DefaultSlowRequestThreshold = 5 * time.Second

	maxClientInfoLength = 64
)

// AuditConfig configures the access log
type AuditConfig struct {
	SlowThreshold time.Duration
	// LogHeaders adds the redacted request headers to every entry.
	LogHeaders bool
}

// Audit writes one access log entry per request after the rest of the
// chain has finished. Credentials never reach the log: query parameters
// and headers are redacted by name.
func Audit(cfg AuditConfig) func(http.Handler) http.Handler {
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = DefaultSlowRequestThreshold
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracker, ok := TrackerFromContext(r.Context())
			if !ok {
				tracker = newTracker()
				r = r.WithContext(WithTracker(r.Context(), tracker))
			}

			start := time.Now()
			rw := newResponseWriter(w, tracker)

			defer func() {
				if !tracker.Current().Terminal() {
					tracker.Advance(StateCompleted)
				}
				logAccess(r, rw, tracker, time.Since(start), cfg)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

func logAccess(r *http.Request, rw *responseWriter, tracker *Tracker, duration time.Duration, cfg AuditConfig) {
	// A broken log handler must not turn a served request into a failure.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("access log failed", slog.Any("panic", rec))
		}
	}()

	principal := tracker.Principal()
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", rw.statusCode),
		slog.Int("bytes", rw.bytes),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.String("client_ip", observability.Truncate(ratelimit.ClientIP(r), maxClientInfoLength)),
		slog.String("user_agent", observability.Truncate(r.UserAgent(), maxClientInfoLength)),
		slog.String("principal_kind", string(principal.Kind())),
		slog.String("state", string(tracker.Current())),
	}
	if sub := principal.Subject(); sub != "" {
		attrs = append(attrs, slog.String("principal_subject", sub))
	}
	if q := observability.RedactQuery(r.URL.Query()); q != "" {
		attrs = append(attrs, slog.String("query", q))
	}
	if cfg.LogHeaders {
		attrs = append(attrs, slog.Any("headers", observability.RedactHeaders(r.Header)))
	}

	log := observability.FromContext(r.Context())
	if duration > cfg.SlowThreshold {
		attrs = append(attrs, slog.Duration("threshold", cfg.SlowThreshold))
		log.LogAttrs(context.Background(), slog.LevelWarn, "slow request", attrs...)
		return
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "request completed", attrs...)
}
