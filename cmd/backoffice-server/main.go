package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kitchen-backoffice/internal/config"
	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/handler"
	"kitchen-backoffice/internal/messaging"
	"kitchen-backoffice/internal/middleware"
	"kitchen-backoffice/internal/observability"
	"kitchen-backoffice/internal/ratelimit"
	"kitchen-backoffice/internal/repository/postgres"
	"kitchen-backoffice/internal/security"
	"kitchen-backoffice/internal/server"
	"kitchen-backoffice/internal/service"
	"kitchen-backoffice/internal/tenant"
	"kitchen-backoffice/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting backoffice server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := config.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgresql")

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		slog.Error("failed to prepare database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	go config.ReportDBStats(ctx, db, 0)

	keys, err := cfg.KeySet()
	if err != nil {
		slog.Error("invalid signing keys", slog.String("error", err.Error()))
		os.Exit(1)
	}
	codec := token.NewCodec(keys, token.WithLeeway(cfg.TokenClockSkew))

	authService := service.NewAuthService(
		postgres.NewAdminRepository(db),
		postgres.NewLocationRepository(db),
		codec,
		cfg.AuthConfig(),
	)
	ensureBootstrapAdmin(authService, cfg)

	// Broker stays a nil interface when RabbitMQ is disabled so readiness
	// reports it as "disabled".
	var publisher domain.SecurityEventPublisher = messaging.LogPublisher{}
	var broker handler.Broker
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rmqCtx, rmqCancel := context.WithTimeout(ctx, 60*time.Second)
		rmq, err = messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
		rmqCancel()
		if err != nil {
			slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
			os.Exit(1)
		}
		publisher = rmq
		broker = rmq
	} else {
		slog.Info("rabbitmq disabled, security events go to the log")
	}
	dispatcher := messaging.NewDispatcher(publisher, messaging.DispatcherConfig{})

	pipeline, limiter, err := buildPipeline(ctx, cfg, codec, dispatcher)
	if err != nil {
		slog.Error("failed to build request pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("request pipeline ready", slog.Any("stages", pipeline.Names()))

	cookies, err := cfg.CookiePolicy()
	if err != nil {
		slog.Error("invalid cookie policy", slog.String("error", err.Error()))
		os.Exit(1)
	}
	responder := middleware.ErrorResponder{Development: cfg.IsDevelopment()}

	router := server.NewRouter(server.Deps{
		Pipeline:  pipeline,
		Auth:      handler.NewAuthHandler(authService, security.NewTokenManager(), cookies, responder),
		Locations: handler.NewLocationHandler(authService, responder),
		Pages:     handler.NewPageHandler(responder),
		DB:        db,
		Broker:    broker,
		Responder: responder,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("backoffice server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Warn("security events still queued at shutdown",
			slog.Int("pending", dispatcher.Pending()),
			slog.String("error", err.Error()))
	}
	limiter.Stop()
	if rmq != nil {
		rmq.Close()
	}
	cancel()

	slog.Info("server stopped gracefully")
}

// buildPipeline wires the request pipeline from configuration. The limiter
// is returned so its cleanup loop can be stopped on shutdown.
func buildPipeline(ctx context.Context, cfg *config.Config, codec *token.Codec, events middleware.EventSink) (*middleware.Pipeline, *ratelimit.Limiter, error) {
	rl, err := cfg.RateLimit()
	if err != nil {
		return nil, nil, err
	}
	classes, err := cfg.RateClasses()
	if err != nil {
		return nil, nil, err
	}
	rules, err := cfg.PathRules()
	if err != nil {
		return nil, nil, err
	}

	limiter, err := ratelimit.New(ctx, rl, middleware.LimiterMetrics()...)
	if err != nil {
		return nil, nil, err
	}
	resolver, err := tenant.NewResolver(codec, rules.Excluded, rules.Protected, rules.Roles)
	if err != nil {
		limiter.Stop()
		return nil, nil, err
	}

	pipeline := middleware.NewPipeline(middleware.PipelineDeps{
		Resolver:        resolver,
		Limiter:         limiter,
		RateClasses:     classes,
		Nonces:          security.NewNonceGenerator(nil),
		CSRF:            security.NewTokenManager(),
		Events:          events,
		OpenAPI:         cfg.OpenAPI(),
		AllowedOrigins:  middleware.ParseOrigins(cfg.AllowedOrigins),
		TelemetryDomain: cfg.TelemetryDomain,
		SlowThreshold:   cfg.SlowRequestThreshold,
		AuditHeaders:    cfg.AuditLogHeaders,
		Development:     cfg.IsDevelopment(),
		HSTS:            cfg.IsProduction(),
	})
	return pipeline, limiter, nil
}

// ensureBootstrapAdmin creates the first admin account when
// BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD are set (idempotent)
func ensureBootstrapAdmin(auth *service.AuthService, cfg *config.Config) {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := auth.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		slog.Error("failed to ensure bootstrap admin", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if created {
		slog.Info("created bootstrap admin", slog.String("email", cfg.BootstrapAdminEmail))
	}
}
