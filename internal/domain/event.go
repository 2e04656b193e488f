package domain

import (
	"context"
	"time"
)

// SecurityEventType classifies events emitted by the request pipeline.
type SecurityEventType string

const (
	EventAuthFailure     SecurityEventType = "auth.failure"
	EventRateLimited     SecurityEventType = "rate_limit.denied"
	EventTenantMismatch  SecurityEventType = "tenant.mismatch"
	EventHeaderSpoof     SecurityEventType = "header.spoof"
	EventAccessForbidden SecurityEventType = "access.forbidden"
)

// SecurityEvent is a notable rejection or anomaly observed by the pipeline.
// It never carries secrets (tokens, cookies, passwords).
type SecurityEvent struct {
	Type          SecurityEventType `json:"type"`
	CorrelationID string            `json:"correlation_id"`
	ClientIP      string            `json:"client_ip"`
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Subject       string            `json:"subject,omitempty"`
	Reason        string            `json:"reason"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// SecurityEventPublisher delivers security events to an external sink.
type SecurityEventPublisher interface {
	PublishSecurityEvent(ctx context.Context, event *SecurityEvent) error
}
