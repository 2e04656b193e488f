package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/middleware"
	"kitchen-backoffice/internal/observability"
	"kitchen-backoffice/internal/tenant"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type calculatorPage struct {
	domain.LocationPrincipal
	Nonce string
}

// PageHandler renders the HTML shells served to location terminals
type PageHandler struct {
	responder middleware.ErrorResponder
}

// NewPageHandler creates a new page handler
func NewPageHandler(responder middleware.ErrorResponder) *PageHandler {
	return &PageHandler{responder: responder}
}

// Calculator handles GET /{slug}/calculator. Inline script and style
// blocks carry the request's CSP nonce.
func (h *PageHandler) Calculator(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context()).(domain.LocationPrincipal)
	if !ok {
		h.responder.Write(w, tenant.ErrMissingCredential)
		return
	}
	nonce, _ := middleware.NonceFromContext(r.Context())

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "calculator.tmpl", calculatorPage{LocationPrincipal: p, Nonce: nonce}); err != nil {
		observability.FromContext(r.Context()).Error("template render failed", "template", "calculator", "error", err)
		h.responder.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
