package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kitchen-backoffice/internal/config"
	"kitchen-backoffice/internal/messaging"
	"kitchen-backoffice/internal/observability"
)

func main() {
	cfg, err := config.LoadAuditor()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting security auditor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rmqCtx, rmqCancel := context.WithTimeout(ctx, 60*time.Second)
	rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
	rmqCancel()
	if err != nil {
		slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rmq.Close()

	msgs, err := rmq.ConsumeAuditQueue()
	if err != nil {
		slog.Error("failed to start consuming", slog.String("error", err.Error()))
		os.Exit(1)
	}

	auditor := messaging.NewAuditor(messaging.AuditorConfig{
		AlertThreshold: cfg.AlertThreshold,
		AlertWindow:    cfg.AlertWindow,
	})

	slog.Info("security auditor is consuming",
		slog.Int("alert_threshold", cfg.AlertThreshold),
		slog.Duration("alert_window", cfg.AlertWindow))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping audit consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("audit queue channel closed")
					return
				}
				err := auditor.Handle(ctx, msg.Body)
				switch {
				case err == nil:
					msg.Ack(false)
				case errors.Is(err, messaging.ErrMalformedEvent):
					slog.Error("dropping malformed security event", slog.String("error", err.Error()))
					msg.Nack(false, false)
				default:
					slog.Error("failed to audit security event", slog.String("error", err.Error()))
					msg.Nack(false, true)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Info("shutting down security auditor")
	case <-done:
		slog.Warn("audit consumer stopped")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("audit consumer did not stop in time")
	}
	slog.Info("security auditor stopped")
}
