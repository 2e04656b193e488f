package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"
	"kitchen-backoffice/internal/ratelimit"
)

// Admitter is the admission check behind the rate limit stage
type Admitter interface {
	Admit(key string) ratelimit.Decision
}

// LimiterMetrics returns the limiter options that feed the bucket gauge and
// the eviction counter.
func LimiterMetrics() []ratelimit.Option {
	return []ratelimit.Option{
		ratelimit.WithEvictionHook(observability.RateLimitEvictions.Inc),
		ratelimit.WithSizeHook(func(n int) {
			observability.RateLimitBuckets.Set(float64(n))
		}),
	}
}

type rateLimitBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// RateLimit admits requests to the configured endpoint classes, one bucket
// per class and client IP. Requests outside every class pass through
// untouched. A token is spent on every attempt, whatever the outcome.
func RateLimit(limiter Admitter, classes []ratelimit.Class, events EventSink) func(http.Handler) http.Handler {
	if events == nil {
		events = NopSink{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class, ok := ratelimit.ClassFor(classes, r)
			if !ok {
				advance(r, StateAdmitted)
				next.ServeHTTP(w, r)
				return
			}

			ip := ratelimit.ClientIP(r)
			d := limiter.Admit(class.Key(ip))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if d.Allowed {
				observability.RateLimitDecisions.WithLabelValues(class.Name, "allowed").Inc()
				advance(r, StateAdmitted)
				next.ServeHTTP(w, r)
				return
			}

			observability.RateLimitDecisions.WithLabelValues(class.Name, "denied").Inc()
			advance(r, StateRateLimited)

			retryAfter := retryAfterSeconds(d.RetryAfter)
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			observability.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("class", class.Name),
				slog.String("client_ip", ip),
				slog.String("path", r.URL.Path),
			)
			events.Emit(r.Context(), newSecurityEvent(r, domain.EventRateLimited, "", class.Name))

			writeJSON(w, http.StatusTooManyRequests, rateLimitBody{
				Error:      "Rate limit exceeded",
				RetryAfter: retryAfter,
			})
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
