package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"
	"kitchen-backoffice/internal/token"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAdminTTL    = 8 * time.Hour
	DefaultLocationTTL = 12 * time.Hour

	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	maxPasswordLength = 72
	maxNameLength     = 120
)

// Slugs that would shadow top-level routes
var reservedSlugs = map[string]bool{
	"admin":   true,
	"api":     true,
	"health":  true,
	"metrics": true,
}

// Compared against when the account does not exist so both paths cost a
// bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("kitchen-backoffice-dummy"), bcrypt.DefaultCost)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(pc token.PrincipalClaims, class domain.TokenClass, ttl time.Duration) (string, error)
}

// AuthConfig holds session lifetimes and hashing cost
type AuthConfig struct {
	AdminTTL    time.Duration
	LocationTTL time.Duration
	BcryptCost  int
}

// LoginResult is a freshly issued session
type LoginResult struct {
	Token     string
	TTL       time.Duration
	ExpiresAt time.Time
	Principal domain.Principal
}

type AuthService struct {
	admins    domain.AdminRepository
	locations domain.LocationRepository
	issuer    TokenIssuer
	cfg       AuthConfig
	now       func() time.Time
}

func NewAuthService(admins domain.AdminRepository, locations domain.LocationRepository, issuer TokenIssuer, cfg AuthConfig) *AuthService {
	if cfg.AdminTTL <= 0 {
		cfg.AdminTTL = DefaultAdminTTL
	}
	if cfg.LocationTTL <= 0 {
		cfg.LocationTTL = DefaultLocationTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		admins:    admins,
		locations: locations,
		issuer:    issuer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AdminLogin verifies an operator's credentials and issues an admin token
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrAdminNotFound) {
			return nil, fmt.Errorf("admin lookup: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	signed, err := s.issuer.Issue(token.PrincipalClaims{
		Subject: admin.Email,
		Roles:   []domain.Role{admin.Role},
	}, domain.TokenClassAdmin, s.cfg.AdminTTL)
	if err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}

	observability.FromContext(ctx).Info("admin logged in", "email", admin.Email, "role", admin.Role)
	return &LoginResult{
		Token:     signed,
		TTL:       s.cfg.AdminTTL,
		ExpiresAt: s.now().Add(s.cfg.AdminTTL),
		Principal: domain.AdminPrincipal{Email: admin.Email, Role: admin.Role},
	}, nil
}

// LocationLogin verifies a site password and issues a location token
func (s *AuthService) LocationLogin(ctx context.Context, slug, password string) (*LoginResult, error) {
	if !domain.ValidSlug(slug) || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	loc, err := s.locations.GetBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, domain.ErrLocationNotFound) {
			return nil, fmt.Errorf("location lookup: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(loc.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	signed, err := s.issuer.Issue(token.PrincipalClaims{
		Subject:    loc.Slug,
		TenantID:   loc.ID,
		TenantName: loc.Name,
	}, domain.TokenClassLocation, s.cfg.LocationTTL)
	if err != nil {
		return nil, fmt.Errorf("issue location token: %w", err)
	}

	observability.FromContext(ctx).Info("location logged in", "slug", loc.Slug)
	return &LoginResult{
		Token:     signed,
		TTL:       s.cfg.LocationTTL,
		ExpiresAt: s.now().Add(s.cfg.LocationTTL),
		Principal: domain.LocationPrincipal{LocationID: loc.ID, Slug: loc.Slug, Name: loc.Name},
	}, nil
}

// ProvisionLocation creates a tenant on behalf of actor
func (s *AuthService) ProvisionLocation(ctx context.Context, actor, slug, name, password string) (*domain.Location, error) {
	name = strings.TrimSpace(name)
	switch {
	case !domain.ValidSlug(slug):
		return nil, fmt.Errorf("%w: slug must be lowercase letters, digits and dashes", domain.ErrInvalidInput)
	case reservedSlugs[slug]:
		return nil, fmt.Errorf("%w: slug %q is reserved", domain.ErrInvalidInput, slug)
	case name == "" || len(name) > maxNameLength:
		return nil, fmt.Errorf("%w: name must be 1-%d characters", domain.ErrInvalidInput, maxNameLength)
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	loc := &domain.Location{
		Slug:         slug,
		Name:         name,
		PasswordHash: string(hash),
		CreatedBy:    actor,
	}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).Info("location provisioned", "slug", slug, "actor", actor)
	return loc, nil
}

// ListLocations returns every tenant ordered by slug
func (s *AuthService) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	return s.locations.List(ctx)
}

// EnsureAdmin creates the bootstrap admin if it does not exist yet. It
// reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return false, fmt.Errorf("%w: bootstrap admin email", domain.ErrInvalidInput)
	}
	if err := checkPassword(password); err != nil {
		return false, err
	}

	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrAdminNotFound) {
		return false, fmt.Errorf("admin lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	err = s.admins.Create(ctx, &domain.AdminUser{Email: email, PasswordHash: string(hash), Role: domain.RoleAdmin})
	if errors.Is(err, domain.ErrAdminExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d bytes", domain.ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	return nil
}
