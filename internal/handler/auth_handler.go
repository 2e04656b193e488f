package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/middleware"
	"kitchen-backoffice/internal/security"
	"kitchen-backoffice/internal/service"
	"kitchen-backoffice/internal/tenant"
)

// Authenticator verifies credentials and issues sessions
type Authenticator interface {
	AdminLogin(ctx context.Context, email, password string) (*service.LoginResult, error)
	LocationLogin(ctx context.Context, slug, password string) (*service.LoginResult, error)
}

// CSRFTokenSource creates double-submit tokens
type CSRFTokenSource interface {
	Generate() (string, error)
}

// AuthHandler handles login, logout and session introspection for both
// admins and locations
type AuthHandler struct {
	auth      Authenticator
	csrf      CSRFTokenSource
	cookies   tenant.CookiePolicy
	responder middleware.ErrorResponder
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(auth Authenticator, csrf CSRFTokenSource, cookies tenant.CookiePolicy, responder middleware.ErrorResponder) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		csrf:      csrf,
		cookies:   cookies,
		responder: responder,
	}
}

// AdminLoginRequest represents the admin login body
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LocationLoginRequest represents the location login body
type LocationLoginRequest struct {
	Password string `json:"password"`
}

// AdminSessionResponse is returned after a successful admin login
type AdminSessionResponse struct {
	domain.AdminPrincipal
	ExpiresAt time.Time `json:"expires_at"`
}

// LocationSessionResponse is returned after a successful location login
type LocationSessionResponse struct {
	domain.LocationPrincipal
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminLogin handles POST /admin/auth/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.auth.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.loginFailed(w, err)
		return
	}
	if !h.startSession(w, r, tenant.AdminCookieName, res) {
		return
	}

	p, _ := res.Principal.(domain.AdminPrincipal)
	writeJSON(w, http.StatusOK, AdminSessionResponse{AdminPrincipal: p, ExpiresAt: res.ExpiresAt})
}

// LocationLogin handles POST /{slug}/auth/login
func (h *AuthHandler) LocationLogin(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, tenant.SlugParam)

	var req LocationLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.auth.LocationLogin(r.Context(), slug, req.Password)
	if err != nil {
		h.loginFailed(w, err)
		return
	}
	if !h.startSession(w, r, tenant.LocationCookieName(slug), res) {
		return
	}

	p, _ := res.Principal.(domain.LocationPrincipal)
	writeJSON(w, http.StatusOK, LocationSessionResponse{LocationPrincipal: p, ExpiresAt: res.ExpiresAt})
}

// AdminLogout handles POST /admin/auth/logout
func (h *AuthHandler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookies.ClearCookie(tenant.AdminCookieName))
	http.SetCookie(w, h.csrfCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

// LocationLogout handles POST /{slug}/auth/logout. Only this location's
// session is cleared; other tabs keep theirs.
func (h *AuthHandler) LocationLogout(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, tenant.SlugParam)
	http.SetCookie(w, h.cookies.ClearCookie(tenant.LocationCookieName(slug)))
	w.WriteHeader(http.StatusNoContent)
}

// AdminMe handles GET /admin/auth/me
func (h *AuthHandler) AdminMe(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context()).(domain.AdminPrincipal)
	if !ok {
		h.responder.Write(w, tenant.ErrMissingCredential)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// LocationMe handles GET /api/locations/{slug}/me
func (h *AuthHandler) LocationMe(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context()).(domain.LocationPrincipal)
	if !ok {
		h.responder.Write(w, tenant.ErrMissingCredential)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	h.responder.Write(w, err)
}

// startSession sets the session cookie and a fresh CSRF cookie. It
// reports false after writing an error response.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, cookieName string, res *service.LoginResult) bool {
	csrfToken, err := h.csrf.Generate()
	if err != nil {
		h.responder.Write(w, err)
		return false
	}
	http.SetCookie(w, h.cookies.SessionCookie(cookieName, res.Token, res.TTL))
	http.SetCookie(w, h.csrfCookie(csrfToken, int(res.TTL.Seconds())))
	return true
}

// csrfCookie is readable by scripts so they can echo it in the header
func (h *AuthHandler) csrfCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     security.CSRFCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	}
}
