package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"kitchen-backoffice/internal/pathpattern"
)

// Class is a sensitive endpoint with its own bucket per client IP, so that
// exhausting one endpoint cannot starve another.
type Class struct {
	Name    string
	Method  string
	Pattern pathpattern.Pattern
}

// Matches reports whether r targets this endpoint class
func (c Class) Matches(r *http.Request) bool {
	if c.Method != "" && !strings.EqualFold(c.Method, r.Method) {
		return false
	}
	_, ok := c.Pattern.Match(r.URL.Path)
	return ok
}

// Key returns the bucket key for a client of this class
func (c Class) Key(clientIP string) string {
	return c.Name + "|" + clientIP
}

// DefaultClasses limits the two login endpoints.
func DefaultClasses() []Class {
	return []Class{
		{Name: "admin-login", Method: http.MethodPost, Pattern: pathpattern.MustCompile("/admin/auth/login")},
		{Name: "location-login", Method: http.MethodPost, Pattern: pathpattern.MustCompile("/{slug}/auth/login")},
	}
}

// ParseClasses parses "name=METHOD /pattern" entries separated by commas.
// The method may be omitted to match any method.
func ParseClasses(spec string) ([]Class, error) {
	var classes []Class
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, target, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("rate limit class %q must be name=[METHOD ]/pattern", entry)
		}
		fields := strings.Fields(target)
		var method, raw string
		switch len(fields) {
		case 1:
			raw = fields[0]
		case 2:
			method, raw = strings.ToUpper(fields[0]), fields[1]
		default:
			return nil, fmt.Errorf("rate limit class %q must be name=[METHOD ]/pattern", entry)
		}
		p, err := pathpattern.Compile(raw)
		if err != nil {
			return nil, err
		}
		classes = append(classes, Class{Name: strings.TrimSpace(name), Method: method, Pattern: p})
	}
	return classes, nil
}

// ClassFor returns the first class matching r.
func ClassFor(classes []Class, r *http.Request) (Class, bool) {
	for _, c := range classes {
		if c.Matches(r) {
			return c, true
		}
	}
	return Class{}, false
}

// ClientIP returns the first X-Forwarded-For entry, else X-Real-IP, else
// the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
