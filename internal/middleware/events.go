package middleware

import (
	"context"
	"net/http"
	"time"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"
	"kitchen-backoffice/internal/ratelimit"
)

// EventSink receives security events. Implementations must not block the
// request.
type EventSink interface {
	Emit(ctx context.Context, event *domain.SecurityEvent)
}

// NopSink discards events
type NopSink struct{}

func (NopSink) Emit(context.Context, *domain.SecurityEvent) {}

func newSecurityEvent(r *http.Request, typ domain.SecurityEventType, subject, reason string) *domain.SecurityEvent {
	return &domain.SecurityEvent{
		Type:          typ,
		CorrelationID: observability.CorrelationID(r.Context()),
		ClientIP:      ratelimit.ClientIP(r),
		Method:        r.Method,
		Path:          r.URL.Path,
		Subject:       subject,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
}
