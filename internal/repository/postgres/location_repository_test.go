package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitchen-backoffice/internal/domain"
)

var locationColumns = []string{"id", "slug", "name", "password_hash", "created_by", "created_at"}

func TestLocationRepository_GetBySlug(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(locationSelectBySlug)).
			WithArgs("downtown").
			WillReturnRows(sqlmock.NewRows(locationColumns).
				AddRow("l-1", "downtown", "Downtown", "hash", "root@example.com", now))

		loc, err := NewLocationRepository(db).GetBySlug(context.Background(), "downtown")

		require.NoError(t, err)
		assert.Equal(t, "l-1", loc.ID)
		assert.Equal(t, "Downtown", loc.Name)
		assert.Equal(t, "root@example.com", loc.CreatedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not_found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(locationSelectBySlug)).
			WithArgs("nowhere").
			WillReturnRows(sqlmock.NewRows(locationColumns))

		_, err = NewLocationRepository(db).GetBySlug(context.Background(), "nowhere")

		assert.ErrorIs(t, err, domain.ErrLocationNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLocationRepository_List(t *testing.T) {
	t.Run("ordered_rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(locationSelectAll)).
			WillReturnRows(sqlmock.NewRows(locationColumns).
				AddRow("l-2", "airport", "Airport", "h", "", now).
				AddRow("l-1", "downtown", "Downtown", "h", "", now))

		locs, err := NewLocationRepository(db).List(context.Background())

		require.NoError(t, err)
		require.Len(t, locs, 2)
		assert.Equal(t, "airport", locs[0].Slug)
		assert.Equal(t, "downtown", locs[1].Slug)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty_is_not_nil", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(locationSelectAll)).
			WillReturnRows(sqlmock.NewRows(locationColumns))

		locs, err := NewLocationRepository(db).List(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, locs)
		assert.Empty(t, locs)
	})

	t.Run("query_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(locationSelectAll)).
			WillReturnError(errors.New("boom"))

		_, err = NewLocationRepository(db).List(context.Background())
		assert.ErrorContains(t, err, "failed to list locations")
	})
}

func TestLocationRepository_Create(t *testing.T) {
	t.Run("inserts_location_and_audit_row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(locationInsert)).
			WithArgs("airport", "Airport", "hash", "root@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("l-7", now))
		mock.ExpectExec(regexp.QuoteMeta(auditInsert)).
			WithArgs("root@example.com", actionLocationCreate, "airport").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		loc := &domain.Location{Slug: "airport", Name: "Airport", PasswordHash: "hash", CreatedBy: "root@example.com"}
		err = NewLocationRepository(db).Create(context.Background(), loc)

		require.NoError(t, err)
		assert.Equal(t, "l-7", loc.ID)
		assert.Equal(t, now, loc.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate_slug_rolls_back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(locationInsert)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: constraintLocationSlug})
		mock.ExpectRollback()

		err = NewLocationRepository(db).Create(context.Background(), &domain.Location{Slug: "downtown"})

		assert.ErrorIs(t, err, domain.ErrSlugTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("audit_failure_rolls_back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(locationInsert)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("l-8", time.Now()))
		mock.ExpectExec(regexp.QuoteMeta(auditInsert)).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err = NewLocationRepository(db).Create(context.Background(), &domain.Location{Slug: "harbor"})

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrSlugTaken)
		assert.Contains(t, err.Error(), "failed to create location")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(schema)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, EnsureSchema(context.Background(), db))

	mock.ExpectExec(regexp.QuoteMeta(schema)).WillReturnError(errors.New("permission denied"))
	assert.ErrorContains(t, EnsureSchema(context.Background(), db), "failed to apply schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}
