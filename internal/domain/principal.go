package domain

// Role is an authority granted to an admin user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

// PrincipalKind names the variant of a resolved Principal.
type PrincipalKind string

const (
	PrincipalAnonymous PrincipalKind = "anonymous"
	PrincipalAdmin     PrincipalKind = "admin"
	PrincipalLocation  PrincipalKind = "location"
)

// Principal is the identity attached to a request after verification.
// Exactly one variant is attached per request.
type Principal interface {
	Kind() PrincipalKind
	// Subject is the admin email, the location slug, or empty for anonymous.
	Subject() string
}

// AdminPrincipal is an authenticated back-office user.
type AdminPrincipal struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (p AdminPrincipal) Kind() PrincipalKind { return PrincipalAdmin }
func (p AdminPrincipal) Subject() string     { return p.Email }

// LocationPrincipal is an authenticated tenant (one restaurant site).
type LocationPrincipal struct {
	LocationID string `json:"location_id"`
	Slug       string `json:"slug"`
	Name       string `json:"name"`
}

func (p LocationPrincipal) Kind() PrincipalKind { return PrincipalLocation }
func (p LocationPrincipal) Subject() string     { return p.Slug }

// Anonymous is attached to requests on unprotected paths.
type Anonymous struct{}

func (Anonymous) Kind() PrincipalKind { return PrincipalAnonymous }
func (Anonymous) Subject() string     { return "" }

// HasRole reports whether p is an admin holding role. Location and
// anonymous principals never hold admin roles.
func HasRole(p Principal, role Role) bool {
	admin, ok := p.(AdminPrincipal)
	if !ok {
		return false
	}
	if role == RoleStaff {
		return admin.Role == RoleStaff || admin.Role == RoleAdmin
	}
	return admin.Role == role
}
