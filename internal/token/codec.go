// Package token encodes and verifies the signed session tokens carried in
// the admin_token and location_token_<slug> cookies.
package token

import (
	"errors"
	"fmt"
	"time"

	"kitchen-backoffice/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is written to and required on every token.
	Issuer = "kitchen-backoffice"

	// DefaultLeeway tolerates small clock differences on exp.
	DefaultLeeway = 30 * time.Second
	// MaxLeeway bounds the configurable leeway.
	MaxLeeway = 60 * time.Second
)

var validMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// PrincipalClaims is the identity a login service asks to be encoded.
type PrincipalClaims struct {
	Subject    string
	Roles      []domain.Role
	TenantID   string
	TenantName string
}

type claims struct {
	jwt.RegisteredClaims
	Roles      []domain.Role     `json:"roles,omitempty"`
	Class      domain.TokenClass `json:"cls"`
	TenantID   string            `json:"tid,omitempty"`
	TenantName string            `json:"tname,omitempty"`
}

// Codec issues and validates session tokens. It is safe for concurrent use.
type Codec struct {
	keys   *KeySet
	leeway time.Duration
	now    func() time.Time
}

// Option configures a Codec
type Option func(*Codec)

// WithLeeway sets the tolerance applied to exp. Values above MaxLeeway are
// capped and negative values are treated as zero.
func WithLeeway(d time.Duration) Option {
	return func(c *Codec) {
		switch {
		case d < 0:
			d = 0
		case d > MaxLeeway:
			d = MaxLeeway
		}
		c.leeway = d
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec signing with the current key of keys.
func NewCodec(keys *KeySet, opts ...Option) *Codec {
	c := &Codec{
		keys:   keys,
		leeway: DefaultLeeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token for pc. A ttl <= 0 yields a token that is already
// expired. NumericDate has second precision, so positive ttls shorter than
// a second are rounded up to one second.
func (c *Codec) Issue(pc PrincipalClaims, class domain.TokenClass, ttl time.Duration) (string, error) {
	if pc.Subject == "" {
		return "", errors.New("token subject is required")
	}
	if !class.Valid() {
		return "", fmt.Errorf("unknown token class %q", class)
	}
	if class == domain.TokenClassLocation && pc.TenantID == "" {
		return "", errors.New("location tokens require a tenant id")
	}

	if ttl > 0 && ttl < time.Second {
		ttl = time.Second
	}
	if ttl < 0 {
		ttl = 0
	}

	now := c.now().Truncate(time.Second)
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   pc.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Roles: pc.Roles,
		Class: class,
	}
	if class == domain.TokenClassLocation {
		cl.TenantID = pc.TenantID
		cl.TenantName = pc.TenantName
	}

	kid, key := c.keys.Current()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenString, verifies its signature and only then checks
// its claims. The returned error is always a *Error.
func (c *Codec) Validate(tokenString string) (*domain.Session, error) {
	if tokenString == "" {
		return nil, newError(KindMalformed, errors.New("empty token"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(validMethods),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	cl := &claims{}
	if _, err := parser.ParseWithClaims(tokenString, cl, c.keyFunc); err != nil {
		return nil, classify(err)
	}

	if cl.IssuedAt == nil {
		return nil, newError(KindMalformed, errors.New("missing issued-at"))
	}
	// exp <= iat only happens for tokens issued with a non-positive ttl,
	// which must never validate, even within the leeway.
	if !cl.ExpiresAt.After(cl.IssuedAt.Time) {
		return nil, newError(KindExpired, errors.New("token issued without lifetime"))
	}

	if cl.Subject == "" {
		return nil, newError(KindMalformed, errors.New("missing subject"))
	}
	if !cl.Class.Valid() {
		return nil, newError(KindMalformed, fmt.Errorf("unknown token class %q", cl.Class))
	}
	if cl.Class == domain.TokenClassLocation && cl.TenantID == "" {
		return nil, newError(KindMalformed, errors.New("location token without tenant id"))
	}

	return &domain.Session{
		Subject:    cl.Subject,
		Roles:      cl.Roles,
		Class:      cl.Class,
		TenantID:   cl.TenantID,
		TenantName: cl.TenantName,
		IssuedAt:   cl.IssuedAt.Time,
		ExpiresAt:  cl.ExpiresAt.Time,
	}, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		_, key := c.keys.Current()
		return key, nil
	}
	key, ok := c.keys.Lookup(kid)
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func classify(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(KindMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return newError(KindBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(KindExpired, err)
	default:
		return newError(KindMalformed, err)
	}
}
