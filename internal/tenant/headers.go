package tenant

import (
	"net/http"

	"kitchen-backoffice/internal/domain"
)

// Identity headers are output-only. Downstream handlers may read them, but
// only after AttachIdentityHeaders has set them from a verified principal.
const (
	HeaderLocationID   = "X-Location-Id"
	HeaderLocationSlug = "X-Location-Slug"
	HeaderLocationName = "X-Location-Name"
)

var identityHeaders = []string{HeaderLocationID, HeaderLocationSlug, HeaderLocationName}

// StripIdentityHeaders removes client-supplied identity headers and returns
// the names that were present.
func StripIdentityHeaders(h http.Header) []string {
	var stripped []string
	for _, name := range identityHeaders {
		if _, ok := h[http.CanonicalHeaderKey(name)]; ok {
			stripped = append(stripped, name)
			h.Del(name)
		}
	}
	return stripped
}

// AttachIdentityHeaders sets the identity headers for a location principal.
// Other principals get none.
func AttachIdentityHeaders(h http.Header, p domain.Principal) {
	loc, ok := p.(domain.LocationPrincipal)
	if !ok {
		return
	}
	h.Set(HeaderLocationID, loc.LocationID)
	h.Set(HeaderLocationSlug, loc.Slug)
	h.Set(HeaderLocationName, loc.Name)
}
