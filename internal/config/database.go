package config

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"kitchen-backoffice/internal/observability"
)

const dbStatsInterval = 15 * time.Second

// NewPostgresConnection opens a PostgreSQL pool and verifies it is reachable
func NewPostgresConnection(ctx context.Context, dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// ReportDBStats copies pool statistics into the DB gauges until ctx is done
func ReportDBStats(ctx context.Context, db *sql.DB, interval time.Duration) {
	if interval <= 0 {
		interval = dbStatsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	observability.RecordDBStats(db.Stats())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.RecordDBStats(db.Stats())
		}
	}
}
