package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kitchen-backoffice/internal/domain"
)

const (
	adminSelectByEmail = `
		SELECT id, email, password_hash, role, created_at
		FROM admin_users
		WHERE email = $1
	`
	adminInsert = `
		INSERT INTO admin_users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
)

// AdminRepository implements domain.AdminRepository for PostgreSQL
type AdminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new PostgreSQL admin repository
func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// GetByEmail retrieves an admin by email. Emails are compared lowercased.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	defer observe("select", "admin_users", time.Now())

	admin := &domain.AdminUser{}
	var role string
	err := r.db.QueryRowContext(ctx, adminSelectByEmail, strings.ToLower(email)).Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&role,
		&admin.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	admin.Role = domain.Role(role)
	return admin, nil
}

// Create inserts a new admin user
func (r *AdminRepository) Create(ctx context.Context, admin *domain.AdminUser) error {
	defer observe("insert", "admin_users", time.Now())

	admin.Email = strings.ToLower(admin.Email)
	err := r.db.QueryRowContext(ctx, adminInsert,
		admin.Email,
		admin.PasswordHash,
		string(admin.Role),
	).Scan(&admin.ID, &admin.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err, constraintAdminEmail) {
			return domain.ErrAdminExists
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}
