package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kitchen-backoffice/internal/security"
	"kitchen-backoffice/internal/tenant"
	"kitchen-backoffice/internal/token"
)

type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
}

var (
	unauthorizedBody = errorBody{Error: "Unauthorized", Category: "authentication", Message: "Authentication required"}
	forbiddenBody    = errorBody{Error: "Forbidden", Category: "authorization", Message: "Insufficient permissions"}
	internalBody     = errorBody{Error: "Internal Server Error", Category: "internal", Message: "An unexpected error occurred"}
)

// StatusFor maps a pipeline error to its HTTP status. Every token and
// tenant failure is a 401 so clients cannot tell a missing cookie from a
// forged one.
func StatusFor(err error) int {
	var tokErr *token.Error
	switch {
	case errors.Is(err, tenant.ErrForbidden), errors.Is(err, security.ErrInvalidToken):
		return http.StatusForbidden
	case errors.Is(err, tenant.ErrMissingCredential),
		errors.Is(err, tenant.ErrTenantMismatch),
		errors.As(err, &tokErr):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// FailureKind names an auth failure for logs and metrics.
func FailureKind(err error) string {
	var tokErr *token.Error
	switch {
	case errors.As(err, &tokErr):
		return tokErr.Kind.String()
	case errors.Is(err, tenant.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, tenant.ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, tenant.ErrForbidden):
		return "forbidden"
	case errors.Is(err, security.ErrInvalidToken):
		return "csrf"
	default:
		return "internal"
	}
}

// failureLevel keeps routine failures (expired session, no cookie) out of
// WARN, which is reserved for likely tampering.
func failureLevel(err error) slog.Level {
	switch {
	case errors.Is(err, token.ErrExpired), errors.Is(err, tenant.ErrMissingCredential):
		return slog.LevelInfo
	case StatusFor(err) == http.StatusInternalServerError:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// ErrorResponder writes the JSON body for a pipeline error. Development
// mode adds the error text to 500 responses.
type ErrorResponder struct {
	Development bool
}

// Write maps err to a status and writes the matching body
func (e ErrorResponder) Write(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	var body errorBody
	switch status {
	case http.StatusUnauthorized:
		body = unauthorizedBody
	case http.StatusForbidden:
		body = forbiddenBody
	default:
		body = internalBody
		if e.Development && err != nil {
			body.Detail = err.Error()
		}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
