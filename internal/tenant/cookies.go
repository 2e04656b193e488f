package tenant

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AdminCookieName carries the admin session token.
const AdminCookieName = "admin_token"

const locationCookiePrefix = "location_token_"

// LocationCookieName returns the cookie carrying slug's session token.
func LocationCookieName(slug string) string {
	return locationCookiePrefix + slug
}

// CookiePolicy holds the attributes applied to session cookies.
type CookiePolicy struct {
	SameSite http.SameSite
	Secure   bool
}

// ParseSameSite accepts Strict, Lax or None (case-insensitive).
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown SameSite policy %q", s)
	}
}

// SessionCookie builds an HttpOnly session cookie scoped to the whole site.
func (p CookiePolicy) SessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

// ClearCookie expires name on the client.
func (p CookiePolicy) ClearCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}
