package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"
	"kitchen-backoffice/internal/tenant"
)

// PrincipalResolver derives the request principal from verified cookies
type PrincipalResolver interface {
	Resolve(r *http.Request) (domain.Principal, error)
}

// TenantAuth strips client-supplied identity headers, resolves the
// principal and attaches it to the request context. On protected paths it
// fails closed with 401, or 403 for a missing role.
func TenantAuth(resolver PrincipalResolver, responder ErrorResponder, events EventSink) func(http.Handler) http.Handler {
	if events == nil {
		events = NopSink{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := observability.FromContext(r.Context())

			if stripped := tenant.StripIdentityHeaders(r.Header); len(stripped) > 0 {
				log.Warn("dropped client-supplied identity headers",
					slog.String("headers", strings.Join(stripped, ",")),
					slog.String("path", r.URL.Path),
				)
				events.Emit(r.Context(), newSecurityEvent(r, domain.EventHeaderSpoof, "", strings.Join(stripped, ",")))
			}

			principal, err := resolver.Resolve(r)
			tracker, tracked := TrackerFromContext(r.Context())
			if tracked && principal != nil {
				tracker.setPrincipal(principal)
			}

			if err != nil {
				kind := FailureKind(err)
				observability.AuthFailures.WithLabelValues(kind).Inc()
				log.Log(r.Context(), failureLevel(err), "request rejected",
					slog.String("kind", kind),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)

				subject := ""
				if principal != nil {
					subject = principal.Subject()
				}
				switch {
				case errors.Is(err, tenant.ErrForbidden):
					advance(r, StateForbidden)
					events.Emit(r.Context(), newSecurityEvent(r, domain.EventAccessForbidden, subject, kind))
				case errors.Is(err, tenant.ErrTenantMismatch):
					advance(r, StateUnauthenticated)
					events.Emit(r.Context(), newSecurityEvent(r, domain.EventTenantMismatch, subject, err.Error()))
				default:
					advance(r, StateUnauthenticated)
					events.Emit(r.Context(), newSecurityEvent(r, domain.EventAuthFailure, subject, kind))
				}

				responder.Write(w, err)
				return
			}

			advance(r, StateResolved)
			tenant.AttachIdentityHeaders(r.Header, principal)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequirePrincipal rejects anonymous requests with 401. Handlers that are
// mounted on protected paths use it as a second line of defence.
func RequirePrincipal(kind domain.PrincipalKind, responder ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetPrincipal(r.Context()).Kind() != kind {
				responder.Write(w, tenant.ErrMissingCredential)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
