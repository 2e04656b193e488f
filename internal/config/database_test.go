package config

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitchen-backoffice/internal/observability"
)

func TestNewPostgresConnection_InvalidURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := NewPostgresConnection(ctx, "invalid://malformed")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestReportDBStats(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	observability.DBConnectionsOpen.Set(-1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ReportDBStats(ctx, db, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return promtest.ToFloat64(observability.DBConnectionsOpen) >= 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop after cancel")
	}
}
