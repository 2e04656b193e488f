package domain

import (
	"context"
	"regexp"
	"time"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Location is one restaurant site (tenant)
type Location struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	// CreatedBy is the email of the admin who provisioned the location.
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LocationRepository is the location store
type LocationRepository interface {
	GetBySlug(ctx context.Context, slug string) (*Location, error)
	List(ctx context.Context) ([]*Location, error)
	Create(ctx context.Context, location *Location) error
}

// ValidSlug reports whether slug is a lowercase, dash-separated identifier
// of at most 64 characters.
func ValidSlug(slug string) bool {
	return len(slug) > 0 && len(slug) <= 64 && slugRegex.MatchString(slug)
}
