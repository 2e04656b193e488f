package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Constraint names referenced when mapping unique violations
const (
	constraintAdminEmail   = "admin_users_email_key"
	constraintLocationSlug = "locations_slug_key"
)

const schema = `
CREATE TABLE IF NOT EXISTS admin_users (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('ADMIN', 'STAFF')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT admin_users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS locations (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	slug          TEXT NOT NULL,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_by    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT locations_slug_key UNIQUE (slug)
);

CREATE TABLE IF NOT EXISTS admin_audit_log (
	id          BIGSERIAL PRIMARY KEY,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	target      TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables if they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
