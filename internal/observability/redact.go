package observability

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Redacted replaces the value of sensitive headers and parameters.
const Redacted = "[REDACTED]"

var sensitiveNames = []string{
	"authorization",
	"cookie",
	"password",
	"token",
	"secret",
	"api-key",
	"apikey",
	"x-xsrf-token",
	"x-csrf-token",
}

// IsSensitive reports whether a header or parameter name may carry a
// credential. Matching is a case-insensitive substring match, so
// "Set-Cookie" and "admin_token" are both sensitive.
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveNames {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactHeaders returns a flattened copy of h with sensitive values replaced.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if IsSensitive(name) {
			out[name] = Redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// RedactQuery returns the query string with sensitive values replaced.
// Keys are sorted for stable output.
func RedactQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			if IsSensitive(k) {
				b.WriteString(Redacted)
			} else {
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
