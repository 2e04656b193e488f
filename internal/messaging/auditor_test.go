package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventBody(t *testing.T, event *domain.SecurityEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestAuditor_CountsPerClient(t *testing.T) {
	a := NewAuditor(AuditorConfig{AlertThreshold: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Handle(ctx, eventBody(t, newEvent(i))))
	}
	other := newEvent(99)
	other.ClientIP = "10.0.0.2"
	require.NoError(t, a.Handle(ctx, eventBody(t, other)))

	assert.Equal(t, 5, a.Count("10.0.0.1"))
	assert.Equal(t, 1, a.Count("10.0.0.2"))
	assert.Equal(t, 0, a.Count("10.0.0.3"))
}

func TestAuditor_AlertsOnceAtThreshold(t *testing.T) {
	a := NewAuditor(AuditorConfig{AlertThreshold: 3})
	before := promtest.ToFloat64(observability.AuditAlerts)

	for i := 0; i < 6; i++ {
		require.NoError(t, a.Handle(context.Background(), eventBody(t, newEvent(i))))
	}

	assert.Equal(t, before+1, promtest.ToFloat64(observability.AuditAlerts))
}

func TestAuditor_CountedByType(t *testing.T) {
	a := NewAuditor(AuditorConfig{})
	counter := observability.AuditedEvents.WithLabelValues(string(domain.EventHeaderSpoof))
	before := promtest.ToFloat64(counter)

	event := newEvent(1)
	event.Type = domain.EventHeaderSpoof
	require.NoError(t, a.Handle(context.Background(), eventBody(t, event)))

	assert.Equal(t, before+1, promtest.ToFloat64(counter))
}

func TestAuditor_WindowExpiry(t *testing.T) {
	a := NewAuditor(AuditorConfig{AlertThreshold: 10, AlertWindow: 50 * time.Millisecond})
	require.NoError(t, a.Handle(context.Background(), eventBody(t, newEvent(1))))
	require.Equal(t, 1, a.Count("10.0.0.1"))

	assert.Eventually(t, func() bool {
		return a.Count("10.0.0.1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestAuditor_MalformedEvents(t *testing.T) {
	a := NewAuditor(AuditorConfig{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"wrong shape", `["auth.failure"]`},
		{"missing type", `{"client_ip":"10.0.0.1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Handle(context.Background(), []byte(tt.body))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
	assert.Equal(t, 0, a.Count("10.0.0.1"))
}

func TestAuditor_EventWithoutClientIP(t *testing.T) {
	a := NewAuditor(AuditorConfig{AlertThreshold: 1})
	event := newEvent(1)
	event.ClientIP = ""

	assert.NoError(t, a.Handle(context.Background(), eventBody(t, event)))
	assert.Equal(t, 0, a.Count(""))
}
