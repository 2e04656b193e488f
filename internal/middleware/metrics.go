package middleware

import (
	"net/http"
	"strconv"
	"time"

	"kitchen-backoffice/internal/observability"

	"github.com/go-chi/chi/v5"
)

// Metrics records request count and latency labelled by route pattern.
// Unmatched requests share one label so probing cannot explode cardinality.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			tracker, tracked := TrackerFromContext(r.Context())
			var ww *responseWriter
			if !tracked {
				ww = newResponseWriter(w, nil)
				w = ww
			}

			next.ServeHTTP(w, r)

			duration := time.Since(start).Seconds()
			code := http.StatusOK
			if tracked {
				if s := tracker.Status(); s != 0 {
					code = s
				}
			} else {
				code = ww.statusCode
			}
			status := strconv.Itoa(code)
			route := routePattern(r)

			observability.HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(duration)
			observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
