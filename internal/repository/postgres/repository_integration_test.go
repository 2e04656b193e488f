//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/repository/postgres"
)

// setupPostgres starts a PostgreSQL container with the schema applied
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := sql.Open("postgres", fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.Eventually(t, func() bool { return db.PingContext(ctx) == nil }, 10*time.Second, 200*time.Millisecond)
	require.NoError(t, postgres.EnsureSchema(ctx, db))
	// Applying twice must be harmless.
	require.NoError(t, postgres.EnsureSchema(ctx, db))
	return db
}

func TestRepositories_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := setupPostgres(t)
	ctx := context.Background()

	admins := postgres.NewAdminRepository(db)
	locations := postgres.NewLocationRepository(db)

	t.Run("admin_create_and_lookup", func(t *testing.T) {
		admin := &domain.AdminUser{Email: "Root@Example.com", PasswordHash: "hash", Role: domain.RoleAdmin}
		require.NoError(t, admins.Create(ctx, admin))
		assert.NotEmpty(t, admin.ID)

		got, err := admins.GetByEmail(ctx, "root@example.com")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)
		assert.Equal(t, domain.RoleAdmin, got.Role)

		err = admins.Create(ctx, &domain.AdminUser{Email: "root@example.com", PasswordHash: "x", Role: domain.RoleStaff})
		assert.ErrorIs(t, err, domain.ErrAdminExists)
	})

	t.Run("location_provisioning_writes_audit_row", func(t *testing.T) {
		for _, slug := range []string{"downtown", "airport"} {
			loc := &domain.Location{Slug: slug, Name: slug, PasswordHash: "hash", CreatedBy: "root@example.com"}
			require.NoError(t, locations.Create(ctx, loc))
		}

		err := locations.Create(ctx, &domain.Location{Slug: "downtown", Name: "Again", PasswordHash: "hash", CreatedBy: "root@example.com"})
		assert.ErrorIs(t, err, domain.ErrSlugTaken)

		list, err := locations.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "airport", list[0].Slug)

		var count int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT count(*) FROM admin_audit_log WHERE action = 'location.create'`).Scan(&count))
		assert.Equal(t, 2, count, "failed insert must not leave an audit row")

		_, err = locations.GetBySlug(ctx, "nowhere")
		assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	})
}
