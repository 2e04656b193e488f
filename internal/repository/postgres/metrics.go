package postgres

import (
	"time"

	"kitchen-backoffice/internal/observability"
)

// observe records the duration of one query
func observe(operation, table string, start time.Time) {
	observability.DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
