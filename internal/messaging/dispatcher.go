package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"
)

const (
	DefaultBufferSize     = 1024
	DefaultPublishTimeout = 2 * time.Second
)

// DispatcherConfig bounds the event queue
type DispatcherConfig struct {
	BufferSize     int
	PublishTimeout time.Duration
}

// Dispatcher hands security events to a publisher from a single background
// worker. Emit never blocks: when the queue is full the event is dropped
// and counted.
type Dispatcher struct {
	publisher domain.SecurityEventPublisher
	timeout   time.Duration
	events    chan *domain.SecurityEvent

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(publisher domain.SecurityEventPublisher, cfg DispatcherConfig) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}

	d := &Dispatcher{
		publisher: publisher,
		timeout:   cfg.PublishTimeout,
		events:    make(chan *domain.SecurityEvent, cfg.BufferSize),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

// Emit queues event for publishing. The request context is not used for
// delivery, so a finished request does not cancel its event.
func (d *Dispatcher) Emit(_ context.Context, event *domain.SecurityEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	select {
	case d.events <- event:
	default:
		d.drop(event, "queue full")
	}
}

func (d *Dispatcher) drop(event *domain.SecurityEvent, reason string) {
	observability.SecurityEventsDropped.Inc()
	slog.Warn("security event dropped",
		slog.String("type", string(event.Type)),
		slog.String("correlation_id", event.CorrelationID),
		slog.String("reason", reason))
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.publisher.PublishSecurityEvent(ctx, event); err != nil {
			observability.SecurityEventsDropped.Inc()
			slog.Error("failed to publish security event",
				slog.String("type", string(event.Type)),
				slog.String("correlation_id", event.CorrelationID),
				slog.String("error", err.Error()))
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be published
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued events
func (d *Dispatcher) Pending() int {
	return len(d.events)
}

// LogPublisher writes security events to the structured log. It is used
// when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) PublishSecurityEvent(_ context.Context, event *domain.SecurityEvent) error {
	slog.Info("security event",
		slog.String("type", string(event.Type)),
		slog.String("correlation_id", event.CorrelationID),
		slog.String("client_ip", event.ClientIP),
		slog.String("method", event.Method),
		slog.String("path", event.Path),
		slog.String("subject", event.Subject),
		slog.String("reason", event.Reason),
		slog.Time("occurred_at", event.OccurredAt))
	return nil
}
