package domain

import (
	"time"
)

// TokenClass distinguishes admin sessions from per-location sessions.
type TokenClass string

const (
	TokenClassAdmin    TokenClass = "ADMIN"
	TokenClassLocation TokenClass = "LOCATION"
)

// Valid reports whether c is a known token class.
func (c TokenClass) Valid() bool {
	return c == TokenClassAdmin || c == TokenClassLocation
}

// Session is the verified content of a session token.
type Session struct {
	Subject    string     `json:"sub"`
	Roles      []Role     `json:"roles,omitempty"`
	Class      TokenClass `json:"cls"`
	TenantID   string     `json:"tid,omitempty"`
	TenantName string     `json:"tname,omitempty"`
	IssuedAt   time.Time  `json:"iat"`
	ExpiresAt  time.Time  `json:"exp"`
}

// HasRole returns true if the session carries the given role
func (s *Session) HasRole(role Role) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}
