package tenant

import (
	"fmt"
	"net/http"
	"strings"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/pathpattern"
)

// SlugParam is the pattern parameter holding the tenant slug.
const SlugParam = "slug"

// Rule marks a path as protected. Class selects the cookie and token class
// expected on the path; RequiredRole, when set, must be held by the
// resolved principal.
type Rule struct {
	Method       string
	Pattern      pathpattern.Pattern
	Class        domain.TokenClass
	RequiredRole domain.Role
}

func (r Rule) match(req *http.Request) (pathpattern.Params, bool) {
	if r.Method != "" && !strings.EqualFold(r.Method, req.Method) {
		return nil, false
	}
	return r.Pattern.Match(req.URL.Path)
}

func (r Rule) String() string {
	if r.Method != "" {
		return r.Method + " " + r.Pattern.String()
	}
	return r.Pattern.String()
}

// PathRules is the full path configuration of a Resolver.
type PathRules struct {
	Excluded  []pathpattern.Pattern
	Protected []Rule
	Roles     []Rule
}

// DefaultProtectedPaths guards the admin portal and every location-scoped
// page and API.
const DefaultProtectedPaths = "/admin/**=ADMIN," +
	"/{slug}/calculator/**=LOCATION," +
	"/{slug}/calculator=LOCATION," +
	"/{slug}/auth/logout=LOCATION," +
	"/api/locations/{slug}/**=LOCATION"

// DefaultExcludedPaths are reachable without a session.
const DefaultExcludedPaths = "/admin/auth/login,/health/**,/health,/metrics"

// DefaultRoleProtectedPaths restricts tenant provisioning to full admins.
const DefaultRoleProtectedPaths = "POST /admin/locations=ADMIN"

// ParseRules parses "[METHOD ]/pattern=CLASS" entries separated by commas.
// Order is preserved: the first matching rule wins.
func ParseRules(list string) ([]Rule, error) {
	entries, err := parseEntries(list)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(entries))
	for _, e := range entries {
		class := domain.TokenClass(strings.ToUpper(e.value))
		if !class.Valid() {
			return nil, fmt.Errorf("protected path %q: unknown token class %q", e.raw, e.value)
		}
		rule := Rule{Method: e.method, Pattern: e.pattern, Class: class}
		if err := checkRule(rule); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseRoleRules parses "[METHOD ]/pattern=ROLE" entries separated by commas.
func ParseRoleRules(list string) ([]Rule, error) {
	entries, err := parseEntries(list)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(entries))
	for _, e := range entries {
		role := domain.Role(strings.ToUpper(e.value))
		if role != domain.RoleAdmin && role != domain.RoleStaff {
			return nil, fmt.Errorf("role protected path %q: unknown role %q", e.raw, e.value)
		}
		rules = append(rules, Rule{Method: e.method, Pattern: e.pattern, RequiredRole: role})
	}
	return rules, nil
}

// LOCATION cookies are named after the slug in the path, so the pattern
// has to capture it.
func checkRule(r Rule) error {
	if r.Class != domain.TokenClassLocation {
		return nil
	}
	if !strings.Contains(r.Pattern.String(), "{"+SlugParam+"}") {
		return fmt.Errorf("location path %q must capture {%s}", r.Pattern, SlugParam)
	}
	return nil
}

type entry struct {
	raw     string
	method  string
	pattern pathpattern.Pattern
	value   string
}

func parseEntries(list string) ([]entry, error) {
	var out []entry
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		target, value, ok := strings.Cut(raw, "=")
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			return nil, fmt.Errorf("path rule %q must be [METHOD ]/pattern=VALUE", raw)
		}
		fields := strings.Fields(target)
		var method, pat string
		switch len(fields) {
		case 1:
			pat = fields[0]
		case 2:
			method, pat = strings.ToUpper(fields[0]), fields[1]
		default:
			return nil, fmt.Errorf("path rule %q must be [METHOD ]/pattern=VALUE", raw)
		}
		p, err := pathpattern.Compile(pat)
		if err != nil {
			return nil, err
		}
		out = append(out, entry{raw: raw, method: method, pattern: p, value: value})
	}
	return out, nil
}
