package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/testutil"
	"kitchen-backoffice/internal/token"
)

type authFixture struct {
	svc       *AuthService
	codec     *token.Codec
	admins    *testutil.MockAdminRepository
	locations *testutil.MockLocationRepository
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		codec:     testutil.NewTestCodec(t),
		admins:    testutil.NewMockAdminRepository(),
		locations: testutil.NewMockLocationRepository(),
	}
	f.svc = NewAuthService(f.admins, f.locations, f.codec, AuthConfig{
		AdminTTL:    time.Hour,
		LocationTTL: 2 * time.Hour,
		BcryptCost:  bcrypt.MinCost,
	})
	return f
}

func TestNewAuthService_Defaults(t *testing.T) {
	svc := NewAuthService(nil, nil, nil, AuthConfig{})
	assert.Equal(t, DefaultAdminTTL, svc.cfg.AdminTTL)
	assert.Equal(t, DefaultLocationTTL, svc.cfg.LocationTTL)
	assert.Equal(t, bcrypt.DefaultCost, svc.cfg.BcryptCost)
}

func TestAuthService_AdminLogin(t *testing.T) {
	f := newAuthFixture(t)
	admin := testutil.NewTestAdmin(
		testutil.WithAdminEmail("ops@example.com"),
		testutil.WithAdminRole(domain.RoleStaff),
		testutil.WithAdminPasswordHash(testutil.HashPassword(t, "correct-horse")),
	)
	f.admins.Add(admin)

	t.Run("success_issues_admin_token", func(t *testing.T) {
		res, err := f.svc.AdminLogin(context.Background(), " Ops@Example.com ", "correct-horse")
		require.NoError(t, err)

		assert.Equal(t, time.Hour, res.TTL)
		assert.Equal(t, domain.AdminPrincipal{Email: "ops@example.com", Role: domain.RoleStaff}, res.Principal)

		session, err := f.codec.Validate(res.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.TokenClassAdmin, session.Class)
		assert.Equal(t, "ops@example.com", session.Subject)
		assert.True(t, session.HasRole(domain.RoleStaff))
		assert.WithinDuration(t, res.ExpiresAt, session.ExpiresAt, 2*time.Second)
	})

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong_password", "ops@example.com", "wrong-password"},
		{"unknown_email", "nobody@example.com", "correct-horse"},
		{"empty_email", "", "correct-horse"},
		{"empty_password", "ops@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.AdminLogin(context.Background(), tt.email, tt.password)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		})
	}

	t.Run("repository_failure_is_not_masked", func(t *testing.T) {
		f := newAuthFixture(t)
		f.admins.GetByEmailFunc = func(ctx context.Context, email string) (*domain.AdminUser, error) {
			return nil, errors.New("connection refused")
		}
		_, err := f.svc.AdminLogin(context.Background(), "ops@example.com", "correct-horse")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestAuthService_LocationLogin(t *testing.T) {
	f := newAuthFixture(t)
	loc := testutil.NewTestLocation(
		testutil.WithSlug("downtown"),
		testutil.WithLocationName("Downtown"),
		testutil.WithLocationPasswordHash(testutil.HashPassword(t, "kitchen-pass")),
	)
	f.locations.Add(loc)

	t.Run("success_issues_location_token", func(t *testing.T) {
		res, err := f.svc.LocationLogin(context.Background(), "downtown", "kitchen-pass")
		require.NoError(t, err)

		assert.Equal(t, 2*time.Hour, res.TTL)
		assert.Equal(t, domain.LocationPrincipal{LocationID: loc.ID, Slug: "downtown", Name: "Downtown"}, res.Principal)

		session, err := f.codec.Validate(res.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.TokenClassLocation, session.Class)
		assert.Equal(t, loc.ID, session.TenantID)
		assert.Equal(t, "Downtown", session.TenantName)
	})

	for _, tt := range []struct {
		name, slug, password string
	}{
		{"wrong_password", "downtown", "nope-nope"},
		{"unknown_slug", "airport", "kitchen-pass"},
		{"invalid_slug", "Down Town", "kitchen-pass"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.LocationLogin(context.Background(), tt.slug, tt.password)
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		})
	}
}

func TestAuthService_ProvisionLocation(t *testing.T) {
	t.Run("hashes_password_and_records_actor", func(t *testing.T) {
		f := newAuthFixture(t)

		loc, err := f.svc.ProvisionLocation(context.Background(), "root@example.com", "airport", "  Airport  ", "terminal-one")
		require.NoError(t, err)

		assert.Equal(t, "Airport", loc.Name)
		assert.Equal(t, "root@example.com", loc.CreatedBy)
		assert.NotEqual(t, "terminal-one", loc.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(loc.PasswordHash), []byte("terminal-one")))

		stored, err := f.locations.GetBySlug(context.Background(), "airport")
		require.NoError(t, err)
		assert.Same(t, loc, stored)

		_, err = f.svc.LocationLogin(context.Background(), "airport", "terminal-one")
		assert.NoError(t, err)
	})

	t.Run("duplicate_slug", func(t *testing.T) {
		f := newAuthFixture(t)
		f.locations.Add(testutil.NewTestLocation(testutil.WithSlug("downtown")))

		_, err := f.svc.ProvisionLocation(context.Background(), "root@example.com", "downtown", "Downtown", "password123")
		assert.ErrorIs(t, err, domain.ErrSlugTaken)
	})

	invalid := []struct {
		name, slug, locName, password string
	}{
		{"bad_slug", "Down_Town", "Downtown", "password123"},
		{"reserved_slug", "admin", "Admin", "password123"},
		{"empty_name", "harbor", "   ", "password123"},
		{"short_password", "harbor", "Harbor", "short"},
		{"long_password", "harbor", "Harbor", string(make([]byte, 73))},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.ProvisionLocation(context.Background(), "root@example.com", tt.slug, tt.locName, tt.password)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)

			list, _ := f.locations.List(context.Background())
			assert.Empty(t, list)
		})
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	f := newAuthFixture(t)

	created, err := f.svc.EnsureAdmin(context.Background(), "Root@Example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.EnsureAdmin(context.Background(), "root@example.com", "another-pass")
	require.NoError(t, err)
	assert.False(t, created, "existing admin must not be replaced")

	res, err := f.svc.AdminLogin(context.Background(), "root@example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Principal.(domain.AdminPrincipal).Role)

	_, err = f.svc.EnsureAdmin(context.Background(), "not-an-email", "bootstrap-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_ListLocations(t *testing.T) {
	f := newAuthFixture(t)
	f.locations.Add(testutil.NewTestLocation(testutil.WithSlug("downtown")))
	f.locations.Add(testutil.NewTestLocation(testutil.WithSlug("airport")))

	list, err := f.svc.ListLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "airport", list[0].Slug)
}
