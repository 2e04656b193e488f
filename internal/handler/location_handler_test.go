package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/middleware"
	"kitchen-backoffice/internal/testutil"
)

var rootAdmin = domain.AdminPrincipal{Email: "root@example.com", Role: domain.RoleAdmin}

func TestLocationHandler_List(t *testing.T) {
	f := newServiceFixture(t)
	f.locations.Add(testutil.NewTestLocation(testutil.WithSlug("downtown")))
	f.locations.Add(testutil.NewTestLocation(testutil.WithSlug("airport")))
	h := NewLocationHandler(f.svc, middleware.ErrorResponder{})

	w := httptest.NewRecorder()
	h.List(w, withPrincipal(httptest.NewRequest(http.MethodGet, "/admin/locations", nil), rootAdmin))

	testutil.AssertStatusCode(t, w, http.StatusOK)
	list := testutil.DecodeJSON[[]map[string]any](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "airport", list[0]["slug"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLocationHandler_List_Error(t *testing.T) {
	f := newServiceFixture(t)
	f.locations.ListFunc = func(ctx context.Context) ([]*domain.Location, error) { return nil, errBoom }
	h := NewLocationHandler(f.svc, middleware.ErrorResponder{})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/admin/locations", nil))

	testutil.AssertErrorBody(t, w, http.StatusInternalServerError, "internal")
}

func TestLocationHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		req        CreateLocationRequest
		setup      func(f *serviceFixture)
		wantStatus int
		wantError  string
	}{
		{
			name:       "created",
			req:        CreateLocationRequest{Slug: "airport", Name: "Airport", Password: "terminal-one"},
			wantStatus: http.StatusCreated,
		},
		{
			name: "slug_taken",
			req:  CreateLocationRequest{Slug: "downtown", Name: "Downtown", Password: "terminal-one"},
			setup: func(f *serviceFixture) {
				f.locations.Add(testutil.NewTestLocation(testutil.WithSlug("downtown")))
			},
			wantStatus: http.StatusConflict,
			wantError:  "Slug already exists",
		},
		{
			name:       "reserved_slug",
			req:        CreateLocationRequest{Slug: "admin", Name: "Admin", Password: "terminal-one"},
			wantStatus: http.StatusBadRequest,
			wantError:  `slug "admin" is reserved`,
		},
		{
			name:       "short_password",
			req:        CreateLocationRequest{Slug: "harbor", Name: "Harbor", Password: "short"},
			wantStatus: http.StatusBadRequest,
			wantError:  "password must be 8-72 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			h := NewLocationHandler(f.svc, middleware.ErrorResponder{})

			req := withPrincipal(testutil.NewJSONRequest(t, http.MethodPost, "/admin/locations", tt.req), rootAdmin)
			w := httptest.NewRecorder()
			h.Create(w, req)

			body := testutil.AssertJSONResponse(t, w, tt.wantStatus)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, tt.req.Slug, body["slug"])
			assert.Equal(t, "root@example.com", body["created_by"])
			assert.NotContains(t, w.Body.String(), tt.req.Password)
		})
	}
}

func TestInputMessage(t *testing.T) {
	assert.Equal(t, "Invalid input", inputMessage(domain.ErrInvalidInput))
}
