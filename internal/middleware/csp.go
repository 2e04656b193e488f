package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"kitchen-backoffice/internal/observability"
)

// NonceSource produces per-request CSP nonces
type NonceSource interface {
	Generate() (string, error)
}

var (
	cspSkipPrefixes = []string{"/api/", "/metrics", "/health", "/actuator"}
	cspSkipSuffixes = []string{".js", ".css", ".json", ".xml", ".map", ".ico", ".png", ".svg"}
)

// SkipCSP reports whether path serves an API or asset response that gets
// neither a nonce nor a policy.
func SkipCSP(path string) bool {
	for _, p := range cspSkipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	lower := strings.ToLower(path)
	for _, s := range cspSkipSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// BuildPolicy renders the Content-Security-Policy header value.
func BuildPolicy(nonce, telemetryDomain string) string {
	return fmt.Sprintf("default-src 'self'; "+
		"script-src 'self' 'nonce-%[1]s'; "+
		"style-src 'self' 'nonce-%[1]s' 'unsafe-inline'; "+
		"img-src 'self' data: https:; "+
		"font-src 'self' data:; "+
		"connect-src 'self' https://*.%[2]s; "+
		"frame-ancestors 'none'; "+
		"base-uri 'self'; "+
		"form-action 'self'; "+
		"upgrade-insecure-requests", nonce, telemetryDomain)
}

// CSP generates a nonce for page requests and stores it for templates. The
// policy header is added only if the response is HTML. A generator failure
// is logged and the request continues without the header.
func CSP(nonces NonceSource, telemetryDomain string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SkipCSP(r.URL.Path) {
				advance(r, StateSkipped)
				next.ServeHTTP(w, r)
				return
			}

			nonce, err := nonces.Generate()
			if err != nil {
				observability.CSPNonceFailures.Inc()
				observability.FromContext(r.Context()).Error("failed to generate CSP nonce",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				advance(r, StateSkipped)
				next.ServeHTTP(w, r)
				return
			}

			pw := &policyWriter{ResponseWriter: w, policy: BuildPolicy(nonce, telemetryDomain)}
			advance(r, StateNonced)
			next.ServeHTTP(pw, r.WithContext(withNonce(r.Context(), nonce)))
		})
	}
}

// policyWriter sets the CSP header when the response headers are written
// with an HTML content type.
type policyWriter struct {
	http.ResponseWriter
	policy      string
	wroteHeader bool
}

func (pw *policyWriter) WriteHeader(statusCode int) {
	if !pw.wroteHeader {
		pw.wroteHeader = true
		if isHTML(pw.Header().Get("Content-Type")) {
			pw.Header().Set("Content-Security-Policy", pw.policy)
		}
	}
	pw.ResponseWriter.WriteHeader(statusCode)
}

func (pw *policyWriter) Write(b []byte) (int, error) {
	if !pw.wroteHeader {
		pw.WriteHeader(http.StatusOK)
	}
	return pw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (pw *policyWriter) Unwrap() http.ResponseWriter {
	return pw.ResponseWriter
}

func (pw *policyWriter) Flush() {
	if !pw.wroteHeader {
		pw.WriteHeader(http.StatusOK)
	}
	if f, ok := pw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}
