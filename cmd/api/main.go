package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/internal/adapters/storage"
	"callqa_backend/internal/agents"
	"callqa_backend/internal/calls"
	"callqa_backend/internal/cities"
	"callqa_backend/internal/escalation"
	"callqa_backend/internal/events"
	apphttp "callqa_backend/internal/http"
	"callqa_backend/internal/http/router"
	"callqa_backend/internal/insights"
	"callqa_backend/internal/notification"
	"callqa_backend/internal/pipeline"
	"callqa_backend/migrations"
	"callqa_backend/platform/ai/openrouter"
	"callqa_backend/platform/config"
	"callqa_backend/platform/db"
	"callqa_backend/platform/logger"
	"callqa_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	store, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	bucket := cfg.GetMinioBucketCallRecordings()
	if err := withRetry(ctx, log, "ensure recordings bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "recordingsBucket", bucket)

	enqueuer, err := pipeline.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize pipeline client", "error", err)
		panic("failed to initialize pipeline client: " + err.Error())
	}
	defer enqueuer.Close()

	llm := openrouter.New(openrouter.Config{
		APIKey:  cfg.GetOpenRouterAPIKey(),
		BaseURL: cfg.GetOpenRouterBaseURL(),
		Model:   cfg.GetOpenRouterModel(),
	})

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification subscribes to domain events; it is not HTTP-facing.
	if cfg.GetEmailEnabled() {
		sender := notification.NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
			cfg.GetEscalationAlertRecipients(),
		)
		notification.NewSubscriber(sender, pool, log).Register(eventBus)
		log.Info("escalation alerts enabled", "recipients", len(cfg.GetEscalationAlertRecipients()))
	} else {
		log.Warn("email disabled; escalation alerts will not be sent")
	}

	callsModule := calls.NewModule(pool, store, bucket, enqueuer, eventBus, val, log)
	insightsModule := insights.NewModule(pool, llm, cfg, log)
	escalationModule := escalation.NewModule(pool)
	agentsModule := agents.NewModule(pool)
	citiesModule := cities.NewModule(pool)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			callsModule,
			insightsModule,
			escalationModule,
			agentsModule,
			citiesModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
