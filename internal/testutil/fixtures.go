package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/token"

	"golang.org/x/crypto/bcrypt"
)

// TestSigningKey is a 32-byte HMAC key for tests only.
const TestSigningKey = "test-signing-key-0123456789abcdef"

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// HashPassword returns a low-cost bcrypt hash for fixtures.
func HashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

// NewTestCodec returns a token codec signing with TestSigningKey under
// key id "test".
func NewTestCodec(t *testing.T, opts ...token.Option) *token.Codec {
	t.Helper()
	keys, err := token.NewKeySet("test", map[string][]byte{"test": []byte(TestSigningKey)})
	if err != nil {
		t.Fatalf("failed to build key set: %v", err)
	}
	return token.NewCodec(keys, opts...)
}

// IssueLocationToken signs a location session for loc.
func IssueLocationToken(t *testing.T, codec *token.Codec, loc *domain.Location) string {
	t.Helper()
	tok, err := codec.Issue(token.PrincipalClaims{
		Subject:    loc.Slug,
		TenantID:   loc.ID,
		TenantName: loc.Name,
	}, domain.TokenClassLocation, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue location token: %v", err)
	}
	return tok
}

// IssueAdminToken signs an admin session for admin.
func IssueAdminToken(t *testing.T, codec *token.Codec, admin *domain.AdminUser) string {
	t.Helper()
	tok, err := codec.Issue(token.PrincipalClaims{
		Subject: admin.Email,
		Roles:   []domain.Role{admin.Role},
	}, domain.TokenClassAdmin, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue admin token: %v", err)
	}
	return tok
}

// AdminOptions allows customizing admin fixture creation
type AdminOptions struct {
	ID           string
	Email        string
	PasswordHash string
	Role         domain.Role
	CreatedAt    time.Time
}

// NewTestAdmin creates a test admin with sensible defaults
func NewTestAdmin(opts ...func(*AdminOptions)) *domain.AdminUser {
	o := &AdminOptions{
		ID:           nextID("admin"),
		PasswordHash: "$2a$10$test.hash.for.testing.purposes.only", // bcrypt hash placeholder
		Role:         domain.RoleAdmin,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Email == "" {
		o.Email = o.ID + "@example.com"
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	return &domain.AdminUser{
		ID:           o.ID,
		Email:        o.Email,
		PasswordHash: o.PasswordHash,
		Role:         o.Role,
		CreatedAt:    o.CreatedAt,
	}
}

// WithAdminEmail sets the admin email
func WithAdminEmail(email string) func(*AdminOptions) {
	return func(o *AdminOptions) {
		o.Email = email
	}
}

// WithAdminRole sets the admin role
func WithAdminRole(role domain.Role) func(*AdminOptions) {
	return func(o *AdminOptions) {
		o.Role = role
	}
}

// WithAdminPasswordHash sets the admin password hash
func WithAdminPasswordHash(hash string) func(*AdminOptions) {
	return func(o *AdminOptions) {
		o.PasswordHash = hash
	}
}

// LocationOptions allows customizing location fixture creation
type LocationOptions struct {
	ID           string
	Slug         string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// NewTestLocation creates a test location with sensible defaults
func NewTestLocation(opts ...func(*LocationOptions)) *domain.Location {
	o := &LocationOptions{
		ID:           nextID("loc"),
		PasswordHash: "$2a$10$test.hash.for.testing.purposes.only",
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Slug == "" {
		o.Slug = fmt.Sprintf("site-%d", idCounter.Load())
	}
	if o.Name == "" {
		o.Name = "Site " + o.Slug
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	return &domain.Location{
		ID:           o.ID,
		Slug:         o.Slug,
		Name:         o.Name,
		PasswordHash: o.PasswordHash,
		CreatedAt:    o.CreatedAt,
	}
}

// WithSlug sets the location slug
func WithSlug(slug string) func(*LocationOptions) {
	return func(o *LocationOptions) {
		o.Slug = slug
	}
}

// WithLocationID sets the location ID
func WithLocationID(id string) func(*LocationOptions) {
	return func(o *LocationOptions) {
		o.ID = id
	}
}

// WithLocationName sets the display name
func WithLocationName(name string) func(*LocationOptions) {
	return func(o *LocationOptions) {
		o.Name = name
	}
}

// WithLocationPasswordHash sets the location password hash
func WithLocationPasswordHash(hash string) func(*LocationOptions) {
	return func(o *LocationOptions) {
		o.PasswordHash = hash
	}
}
