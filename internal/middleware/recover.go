package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"kitchen-backoffice/internal/observability"
)

// Recover converts a panic anywhere below it into a generic 500. The panic
// is logged with the correlation id, path and stack.
func Recover(responder ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				observability.FromContext(r.Context()).Error("panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				advance(r, StateFailed)

				if t, ok := TrackerFromContext(r.Context()); ok && t.Status() != 0 {
					// Headers are already on the wire.
					return
				}
				responder.Write(w, fmt.Errorf("panic: %v", rec))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
