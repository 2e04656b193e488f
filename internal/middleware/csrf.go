package middleware

import (
	"log/slog"
	"net/http"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"
	"kitchen-backoffice/internal/security"
)

// CSRFVerifier checks a double-submitted token pair
type CSRFVerifier interface {
	Verify(cookieValue, submitted string) error
}

// CSRF enforces the double-submit contract on state-changing requests made
// with a session. The XSRF-TOKEN cookie set at login must be echoed in the
// X-XSRF-Token header. Anonymous requests carry no session to ride on and
// pass through.
func CSRF(verifier CSRFVerifier, responder ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			principal := GetPrincipal(r.Context())
			if principal.Kind() == domain.PrincipalAnonymous {
				next.ServeHTTP(w, r)
				return
			}

			var cookieValue string
			if c, err := r.Cookie(security.CSRFCookieName); err == nil {
				cookieValue = c.Value
			}

			if err := verifier.Verify(cookieValue, extractCSRFToken(r)); err != nil {
				observability.AuthFailures.WithLabelValues("csrf").Inc()
				observability.FromContext(r.Context()).Warn("CSRF validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("cookie_present", cookieValue != ""),
				)
				advance(r, StateForbidden)
				responder.Write(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod returns true if the HTTP method is idempotent and cacheable.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// extractCSRFToken checks X-XSRF-Token, then the X-CSRF-Token alias.
func extractCSRFToken(r *http.Request) string {
	if token := r.Header.Get(security.CSRFHeaderName); token != "" {
		return token
	}
	return r.Header.Get("X-CSRF-Token")
}
