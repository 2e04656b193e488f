package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/middleware"
	"kitchen-backoffice/internal/service"
	"kitchen-backoffice/internal/testutil"
	"kitchen-backoffice/internal/token"
)

type stubCSRF struct {
	token string
	err   error
}

func (s stubCSRF) Generate() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

var errBoom = errors.New("boom")

type serviceFixture struct {
	svc       *service.AuthService
	codec     *token.Codec
	admins    *testutil.MockAdminRepository
	locations *testutil.MockLocationRepository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		codec:     testutil.NewTestCodec(t),
		admins:    testutil.NewMockAdminRepository(),
		locations: testutil.NewMockLocationRepository(),
	}
	f.svc = service.NewAuthService(f.admins, f.locations, f.codec, service.AuthConfig{BcryptCost: bcrypt.MinCost})
	return f
}

// withSlug sets the chi route parameter the handlers read
func withSlug(r *http.Request, slug string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", slug)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withPrincipal(r *http.Request, p domain.Principal) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), p))
}
