package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kitchen-backoffice/internal/domain"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// SecurityExchange receives every security event, routed by type.
	SecurityExchange = "security.events"
	// AuditQueue keeps every security event for the audit trail.
	AuditQueue = "security.audit"

	routingKeyPrefix = "security."
)

// RabbitMQ publishes security events to a topic exchange
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry keeps dialing with exponential backoff until the
// broker accepts the connection or ctx is done
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0

	var rmq *RabbitMQ
	err := backoff.RetryNotify(func() error {
		var err error
		rmq, err = NewRabbitMQ(url)
		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		slog.Warn("rabbitmq not ready, retrying",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", next))
	})
	if err != nil {
		return nil, err
	}
	return rmq, nil
}

func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		SecurityExchange, // name
		"topic",          // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	); err != nil {
		return fmt.Errorf("failed to declare security exchange: %w", err)
	}

	if _, err := r.channel.QueueDeclare(
		AuditQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", AuditQueue, err)
	}

	if err := r.channel.QueueBind(
		AuditQueue,           // queue name
		routingKeyPrefix+"#", // routing key
		SecurityExchange,     // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind %s queue: %w", AuditQueue, err)
	}

	slog.Info("rabbitmq setup completed successfully",
		slog.String("exchange", SecurityExchange),
		slog.String("queue", AuditQueue))
	return nil
}

// RoutingKey returns the topic key for an event type, e.g.
// "security.rate_limit.denied".
func RoutingKey(t domain.SecurityEventType) string {
	return routingKeyPrefix + string(t)
}

// PublishSecurityEvent implements domain.SecurityEventPublisher
func (r *RabbitMQ) PublishSecurityEvent(ctx context.Context, event *domain.SecurityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal security event: %w", err)
	}

	r.mu.Lock()
	err = r.channel.PublishWithContext(
		ctx,
		SecurityExchange,
		RoutingKey(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			CorrelationId: event.CorrelationID,
			Timestamp:     event.OccurredAt,
			Type:          string(event.Type),
		},
	)
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to publish security event: %w", err)
	}

	slog.Debug("published security event",
		slog.String("type", string(event.Type)),
		slog.String("correlation_id", event.CorrelationID))
	return nil
}

// ConsumeAuditQueue starts delivering events from the audit queue.
func (r *RabbitMQ) ConsumeAuditQueue() (<-chan amqp.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs, err := r.channel.Consume(
		AuditQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming security events",
		slog.String("queue", AuditQueue))
	return msgs, nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
