package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/middleware"
)

// LocationService manages tenants
type LocationService interface {
	ListLocations(ctx context.Context) ([]*domain.Location, error)
	ProvisionLocation(ctx context.Context, actor, slug, name, password string) (*domain.Location, error)
}

// LocationHandler serves the admin tenant endpoints
type LocationHandler struct {
	locations LocationService
	responder middleware.ErrorResponder
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locations LocationService, responder middleware.ErrorResponder) *LocationHandler {
	return &LocationHandler{locations: locations, responder: responder}
}

// CreateLocationRequest represents the provisioning body
type CreateLocationRequest struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// List handles GET /admin/locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.ListLocations(r.Context())
	if err != nil {
		h.responder.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

// Create handles POST /admin/locations
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.GetPrincipal(r.Context()).Subject()
	loc, err := h.locations.ProvisionLocation(r.Context(), actor, req.Slug, req.Name, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, loc)
	case errors.Is(err, domain.ErrSlugTaken):
		writeError(w, http.StatusConflict, "Slug already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, inputMessage(err))
	default:
		h.responder.Write(w, err)
	}
}

// inputMessage strips the sentinel prefix from a validation error
func inputMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
	if msg == "" || msg == domain.ErrInvalidInput.Error() {
		return "Invalid input"
	}
	return msg
}
