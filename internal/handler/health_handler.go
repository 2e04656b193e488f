package handler

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 5 * time.Second

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Database is the part of *sql.DB readiness needs
type Database interface {
	PingContext(ctx context.Context) error
}

// Broker reports whether the security event connection is usable
type Broker interface {
	IsClosed() bool
}

// Ready returns readiness of the database and, when configured, the
// security event broker. A nil broker is reported as disabled and does
// not fail readiness.
func Ready(db Database, broker Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		dbResult := make(chan HealthCheckResult, 1)
		go func() {
			dbResult <- checkDatabase(ctx, db)
		}()
		brokerCheck := checkBroker(broker)
		dbCheck := <-dbResult

		status, code := "ready", http.StatusOK
		if dbCheck.Status != "up" || brokerCheck.Status == "down" {
			status, code = "not_ready", http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks": map[string]HealthCheckResult{
				"database": dbCheck,
				"rabbitmq": brokerCheck,
			},
		})
	}
}

func checkDatabase(ctx context.Context, db Database) HealthCheckResult {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)
	if err != nil {
		return HealthCheckResult{Status: "down", LatencyMs: latency.Milliseconds(), Error: err.Error()}
	}
	return HealthCheckResult{Status: "up", LatencyMs: latency.Milliseconds()}
}

func checkBroker(broker Broker) HealthCheckResult {
	switch {
	case broker == nil:
		return HealthCheckResult{Status: "disabled"}
	case broker.IsClosed():
		return HealthCheckResult{Status: "down", Error: "connection closed"}
	default:
		return HealthCheckResult{Status: "up"}
	}
}
