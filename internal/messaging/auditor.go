package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"
)

const (
	DefaultAlertThreshold = 20
	DefaultAlertWindow    = 10 * time.Minute
	defaultTrackedClients = 10000
)

// ErrMalformedEvent marks a delivery that can never be processed
var ErrMalformedEvent = errors.New("malformed security event")

// AuditorConfig controls when a client is reported as suspicious
type AuditorConfig struct {
	// AlertThreshold is the number of events from one client that raises
	// an alert. A client's count is forgotten after AlertWindow without
	// new events.
	AlertThreshold int
	AlertWindow    time.Duration
	MaxClients     int
}

// Auditor records security events from the audit queue and raises an alert
// once per window for clients that keep triggering them.
type Auditor struct {
	threshold int

	mu     sync.Mutex
	counts *expirable.LRU[string, int]
}

func NewAuditor(cfg AuditorConfig) *Auditor {
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = DefaultAlertThreshold
	}
	if cfg.AlertWindow <= 0 {
		cfg.AlertWindow = DefaultAlertWindow
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = defaultTrackedClients
	}
	return &Auditor{
		threshold: cfg.AlertThreshold,
		counts:    expirable.NewLRU[string, int](cfg.MaxClients, nil, cfg.AlertWindow),
	}
}

// Handle decodes and records one delivery body. A decode failure wraps
// ErrMalformedEvent so the caller can drop the message instead of
// requeueing it.
func (a *Auditor) Handle(ctx context.Context, body []byte) error {
	var event domain.SecurityEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Type == "" {
		return fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	observability.AuditedEvents.WithLabelValues(string(event.Type)).Inc()

	logger := observability.FromContext(ctx).With(
		slog.String("type", string(event.Type)),
		slog.String("correlation_id", event.CorrelationID),
		slog.String("client_ip", event.ClientIP),
		slog.String("method", event.Method),
		slog.String("path", event.Path),
		slog.String("subject", event.Subject),
		slog.String("reason", event.Reason),
		slog.Time("occurred_at", event.OccurredAt))

	switch event.Type {
	case domain.EventHeaderSpoof, domain.EventTenantMismatch:
		logger.Warn("security event")
	default:
		logger.Info("security event")
	}

	if event.ClientIP == "" {
		return nil
	}
	if count := a.record(event.ClientIP); count == a.threshold {
		observability.AuditAlerts.Inc()
		logger.Warn("client reached security event threshold",
			slog.Int("events", count))
	}
	return nil
}

// Count returns the events recorded for clientIP in the current window
func (a *Auditor) Count(clientIP string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, _ := a.counts.Get(clientIP)
	return n
}

func (a *Auditor) record(clientIP string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, _ := a.counts.Get(clientIP)
	n++
	a.counts.Add(clientIP, n)
	return n
}
