package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/middleware"
	"kitchen-backoffice/internal/security"
	"kitchen-backoffice/internal/tenant"
	"kitchen-backoffice/internal/testutil"
)

func newTestAuthHandler(t *testing.T, csrf CSRFTokenSource) (*AuthHandler, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	f.admins.Add(testutil.NewTestAdmin(
		testutil.WithAdminEmail("root@example.com"),
		testutil.WithAdminPasswordHash(testutil.HashPassword(t, "admin-password")),
	))
	f.locations.Add(testutil.NewTestLocation(
		testutil.WithSlug("downtown"),
		testutil.WithLocationID("loc-downtown"),
		testutil.WithLocationName("Downtown"),
		testutil.WithLocationPasswordHash(testutil.HashPassword(t, "kitchen-pass")),
	))
	cookies := tenant.CookiePolicy{SameSite: http.SameSiteStrictMode, Secure: true}
	return NewAuthHandler(f.svc, csrf, cookies, middleware.ErrorResponder{}), f
}

func TestAuthHandler_AdminLogin_Success(t *testing.T) {
	h, f := newTestAuthHandler(t, stubCSRF{token: "csrf-token-value"})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/auth/login",
		AdminLoginRequest{Email: "root@example.com", Password: "admin-password"})
	w := httptest.NewRecorder()
	h.AdminLogin(w, req)

	body := testutil.AssertJSONResponse(t, w, http.StatusOK)
	assert.Equal(t, "root@example.com", body["email"])
	assert.Equal(t, "ADMIN", body["role"])
	assert.NotEmpty(t, body["expires_at"])

	session := testutil.AssertCookie(t, w, tenant.AdminCookieName)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.True(t, session.Secure)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)
	assert.Equal(t, int((8 * time.Hour).Seconds()), session.MaxAge)

	parsed, err := f.codec.Validate(session.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenClassAdmin, parsed.Class)

	csrf := testutil.AssertCookie(t, w, security.CSRFCookieName)
	require.NotNil(t, csrf)
	assert.Equal(t, "csrf-token-value", csrf.Value)
	assert.False(t, csrf.HttpOnly, "scripts must be able to read the CSRF cookie")
}

func TestAuthHandler_AdminLogin_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		csrf       stubCSRF
		wantStatus int
		wantBody   string
	}{
		{
			name:       "wrong_password",
			body:       `{"email":"root@example.com","password":"nope"}`,
			csrf:       stubCSRF{token: "t"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Invalid credentials"}`,
		},
		{
			name:       "unknown_admin",
			body:       `{"email":"ghost@example.com","password":"admin-password"}`,
			csrf:       stubCSRF{token: "t"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Invalid credentials"}`,
		},
		{
			name:       "malformed_body",
			body:       `{"email":`,
			csrf:       stubCSRF{token: "t"},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid request body"}`,
		},
		{
			name:       "csrf_generation_failure",
			body:       `{"email":"root@example.com","password":"admin-password"}`,
			csrf:       stubCSRF{err: errBoom},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal Server Error","category":"internal","message":"An unexpected error occurred"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestAuthHandler(t, tt.csrf)
			req := httptest.NewRequest(http.MethodPost, "/admin/auth/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.AdminLogin(w, req)

			testutil.AssertStatusCode(t, w, tt.wantStatus)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.Empty(t, w.Result().Cookies(), "failed login must not set cookies")
		})
	}
}

func TestAuthHandler_LocationLogin(t *testing.T) {
	h, f := newTestAuthHandler(t, stubCSRF{token: "csrf"})

	t.Run("success_sets_slug_cookie", func(t *testing.T) {
		req := withSlug(testutil.NewJSONRequest(t, http.MethodPost, "/downtown/auth/login",
			LocationLoginRequest{Password: "kitchen-pass"}), "downtown")
		w := httptest.NewRecorder()
		h.LocationLogin(w, req)

		resp := testutil.DecodeJSON[LocationSessionResponse](t, w)
		testutil.AssertStatusCode(t, w, http.StatusOK)
		assert.Equal(t, "loc-downtown", resp.LocationID)
		assert.Equal(t, "Downtown", resp.Name)

		c := testutil.AssertCookie(t, w, "location_token_downtown")
		require.NotNil(t, c)
		session, err := f.codec.Validate(c.Value)
		require.NoError(t, err)
		assert.Equal(t, "loc-downtown", session.TenantID)
		testutil.AssertCookie(t, w, security.CSRFCookieName)
	})

	t.Run("unknown_slug_is_invalid_credentials", func(t *testing.T) {
		req := withSlug(testutil.NewJSONRequest(t, http.MethodPost, "/airport/auth/login",
			LocationLoginRequest{Password: "kitchen-pass"}), "airport")
		w := httptest.NewRecorder()
		h.LocationLogin(w, req)

		testutil.AssertStatusCode(t, w, http.StatusUnauthorized)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	h, _ := newTestAuthHandler(t, stubCSRF{token: "csrf"})

	t.Run("admin", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.AdminLogout(w, httptest.NewRequest(http.MethodPost, "/admin/auth/logout", nil))

		testutil.AssertStatusCode(t, w, http.StatusNoContent)
		testutil.AssertCookieCleared(t, w, tenant.AdminCookieName)
		testutil.AssertCookieCleared(t, w, security.CSRFCookieName)
	})

	t.Run("location_clears_only_its_cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.LocationLogout(w, withSlug(httptest.NewRequest(http.MethodPost, "/downtown/auth/logout", nil), "downtown"))

		testutil.AssertStatusCode(t, w, http.StatusNoContent)
		testutil.AssertCookieCleared(t, w, "location_token_downtown")
		assert.Len(t, w.Result().Cookies(), 1)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	h, _ := newTestAuthHandler(t, stubCSRF{token: "csrf"})

	t.Run("admin", func(t *testing.T) {
		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/admin/auth/me", nil),
			domain.AdminPrincipal{Email: "root@example.com", Role: domain.RoleAdmin})
		w := httptest.NewRecorder()
		h.AdminMe(w, req)

		testutil.AssertStatusCode(t, w, http.StatusOK)
		assert.JSONEq(t, `{"email":"root@example.com","role":"ADMIN"}`, w.Body.String())
	})

	t.Run("location", func(t *testing.T) {
		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/locations/downtown/me", nil),
			domain.LocationPrincipal{LocationID: "loc-downtown", Slug: "downtown", Name: "Downtown"})
		w := httptest.NewRecorder()
		h.LocationMe(w, req)

		testutil.AssertStatusCode(t, w, http.StatusOK)
		assert.JSONEq(t, `{"location_id":"loc-downtown","slug":"downtown","name":"Downtown"}`, w.Body.String())
	})

	t.Run("wrong_principal_kind", func(t *testing.T) {
		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/admin/auth/me", nil),
			domain.LocationPrincipal{Slug: "downtown"})
		w := httptest.NewRecorder()
		h.AdminMe(w, req)

		testutil.AssertErrorBody(t, w, http.StatusUnauthorized, "authentication")
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.LocationMe(w, httptest.NewRequest(http.MethodGet, "/api/locations/downtown/me", nil))

		testutil.AssertErrorBody(t, w, http.StatusUnauthorized, "authentication")
	})
}
