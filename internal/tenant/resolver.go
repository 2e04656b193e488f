// Package tenant maps verified session tokens to request principals and
// enforces tenant isolation on protected paths.
package tenant

import (
	"errors"
	"fmt"
	"net/http"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/pathpattern"
)

var (
	// ErrMissingCredential is returned when a protected path carries no
	// session cookie.
	ErrMissingCredential = errors.New("missing credential")
	// ErrTenantMismatch is returned when a verified token belongs to another
	// tenant or to the wrong token class for the path.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrForbidden is returned when the principal lacks a required role.
	ErrForbidden = errors.New("insufficient permissions")
)

// TokenValidator verifies a session token string.
type TokenValidator interface {
	Validate(tokenString string) (*domain.Session, error)
}

// Resolver turns the cookies of a request into a Principal. Identity is
// only ever derived from a verified token, never from request headers.
type Resolver struct {
	validator TokenValidator
	excluded  []pathpattern.Pattern
	protected []Rule
	roles     []Rule
}

// NewResolver creates a resolver. Excluded patterns are checked first, then
// the first matching protected rule decides which token is required.
// Role rules apply to requests that resolved to an authenticated principal.
func NewResolver(validator TokenValidator, excluded []pathpattern.Pattern, protected, roles []Rule) (*Resolver, error) {
	for _, r := range protected {
		if err := checkRule(r); err != nil {
			return nil, err
		}
	}
	return &Resolver{
		validator: validator,
		excluded:  excluded,
		protected: protected,
		roles:     roles,
	}, nil
}

// Protected reports whether r needs a session, returning the matching rule.
func (res *Resolver) Protected(r *http.Request) (Rule, pathpattern.Params, bool) {
	if _, _, ok := pathpattern.MatchAny(res.excluded, r.URL.Path); ok {
		return Rule{}, nil, false
	}
	for _, rule := range res.protected {
		if params, ok := rule.match(r); ok {
			return rule, params, true
		}
	}
	return Rule{}, nil, false
}

// Resolve returns the principal for r. Unprotected paths resolve to
// Anonymous; protected paths fail closed.
func (res *Resolver) Resolve(r *http.Request) (domain.Principal, error) {
	rule, params, ok := res.Protected(r)
	if !ok {
		return domain.Anonymous{}, nil
	}

	var (
		principal domain.Principal
		err       error
	)
	switch rule.Class {
	case domain.TokenClassAdmin:
		principal, err = res.resolveAdmin(r)
	case domain.TokenClassLocation:
		principal, err = res.resolveLocation(r, params[SlugParam])
	default:
		err = fmt.Errorf("rule %s has no token class", rule)
	}
	if err != nil {
		return nil, err
	}

	if role := res.requiredRole(r, rule); role != "" && !domain.HasRole(principal, role) {
		return principal, fmt.Errorf("%w: %s requires role %s", ErrForbidden, r.URL.Path, role)
	}
	return principal, nil
}

func (res *Resolver) requiredRole(r *http.Request, rule Rule) domain.Role {
	if rule.RequiredRole != "" {
		return rule.RequiredRole
	}
	for _, rr := range res.roles {
		if _, ok := rr.match(r); ok {
			return rr.RequiredRole
		}
	}
	return ""
}

func (res *Resolver) resolveAdmin(r *http.Request) (domain.Principal, error) {
	session, err := res.validateCookie(r, AdminCookieName)
	if err != nil {
		return nil, err
	}
	if session.Class != domain.TokenClassAdmin {
		return nil, fmt.Errorf("%w: %s token on admin path", ErrTenantMismatch, session.Class)
	}
	return domain.AdminPrincipal{Email: session.Subject, Role: primaryRole(session)}, nil
}

func (res *Resolver) resolveLocation(r *http.Request, slug string) (domain.Principal, error) {
	if !domain.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: invalid slug %q", ErrMissingCredential, slug)
	}
	session, err := res.validateCookie(r, LocationCookieName(slug))
	if err != nil {
		return nil, err
	}
	if session.Class != domain.TokenClassLocation {
		return nil, fmt.Errorf("%w: %s token on location path", ErrTenantMismatch, session.Class)
	}
	if session.Subject != slug {
		return nil, fmt.Errorf("%w: token for %q used on %q", ErrTenantMismatch, session.Subject, slug)
	}
	return domain.LocationPrincipal{
		LocationID: session.TenantID,
		Slug:       session.Subject,
		Name:       session.TenantName,
	}, nil
}

func (res *Resolver) validateCookie(r *http.Request, name string) (*domain.Session, error) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w: no %s cookie", ErrMissingCredential, name)
	}
	session, err := res.validator.Validate(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return session, nil
}

// primaryRole picks the strongest role carried by an admin session.
func primaryRole(s *domain.Session) domain.Role {
	switch {
	case s.HasRole(domain.RoleAdmin):
		return domain.RoleAdmin
	case s.HasRole(domain.RoleStaff):
		return domain.RoleStaff
	case len(s.Roles) > 0:
		return s.Roles[0]
	default:
		return ""
	}
}
