package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kitchen-backoffice/internal/domain"
)

const (
	locationSelectBySlug = `
		SELECT id, slug, name, password_hash, created_by, created_at
		FROM locations
		WHERE slug = $1
	`
	locationSelectAll = `
		SELECT id, slug, name, password_hash, created_by, created_at
		FROM locations
		ORDER BY slug
	`
	locationInsert = `
		INSERT INTO locations (slug, name, password_hash, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	auditInsert = `
		INSERT INTO admin_audit_log (actor, action, target)
		VALUES ($1, $2, $3)
	`

	actionLocationCreate = "location.create"
)

// LocationRepository implements domain.LocationRepository for PostgreSQL
type LocationRepository struct {
	db *sql.DB
	tx *TxManager
}

// NewLocationRepository creates a new PostgreSQL location repository
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db, tx: NewTxManager(db)}
}

// GetBySlug retrieves a location by slug
func (r *LocationRepository) GetBySlug(ctx context.Context, slug string) (*domain.Location, error) {
	defer observe("select", "locations", time.Now())

	loc := &domain.Location{}
	err := r.db.QueryRowContext(ctx, locationSelectBySlug, slug).Scan(
		&loc.ID,
		&loc.Slug,
		&loc.Name,
		&loc.PasswordHash,
		&loc.CreatedBy,
		&loc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return loc, nil
}

// List retrieves all locations ordered by slug
func (r *LocationRepository) List(ctx context.Context) ([]*domain.Location, error) {
	defer observe("select", "locations", time.Now())

	rows, err := r.db.QueryContext(ctx, locationSelectAll)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	locations := make([]*domain.Location, 0)
	for rows.Next() {
		loc := &domain.Location{}
		if err := rows.Scan(
			&loc.ID,
			&loc.Slug,
			&loc.Name,
			&loc.PasswordHash,
			&loc.CreatedBy,
			&loc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// Create inserts the location and its audit log entry in one transaction
func (r *LocationRepository) Create(ctx context.Context, location *domain.Location) error {
	defer observe("insert", "locations", time.Now())

	err := r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, locationInsert,
			location.Slug,
			location.Name,
			location.PasswordHash,
			location.CreatedBy,
		).Scan(&location.ID, &location.CreatedAt); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, auditInsert, location.CreatedBy, actionLocationCreate, location.Slug)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err, constraintLocationSlug) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}
