package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/internal/adapters/storage"
	"callqa_backend/internal/calls"
	"callqa_backend/internal/events"
	"callqa_backend/internal/notification"
	"callqa_backend/internal/pipeline"
	"callqa_backend/internal/pipeline/scorer"
	"callqa_backend/internal/pipeline/transcriber"
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
	log.Info("starting pipeline worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	for attempt := 1; ; attempt++ {
		pool, err = db.NewPool(ctx, cfg)
		if err == nil {
			break
		}
		if attempt >= 5 {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		log.Warn("database connection failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	defer pool.Close()
	log.Info("database connection established")

	store, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	bucket := cfg.GetMinioBucketCallRecordings()

	enqueuer, err := pipeline.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize pipeline client", "error", err)
		panic("failed to initialize pipeline client: " + err.Error())
	}
	defer enqueuer.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Workers publish the same lifecycle events as the API, so escalation
	// alerts also fire for calls finalized here.
	if cfg.GetEmailEnabled() {
		sender := notification.NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
			cfg.GetEscalationAlertRecipients(),
		)
		notification.NewSubscriber(sender, pool, log).Register(eventBus)
	}

	callsModule := calls.NewModule(pool, store, bucket, enqueuer, eventBus, val, log)

	llm := openrouter.New(openrouter.Config{
		APIKey:  cfg.GetOpenRouterAPIKey(),
		BaseURL: cfg.GetOpenRouterBaseURL(),
		Model:   cfg.GetOpenRouterModel(),
	})

	worker, err := pipeline.NewWorker(
		cfg,
		callsModule.Repository(),
		callsModule.Controller(),
		store,
		bucket,
		transcriber.NewClient(cfg),
		scorer.NewClient(llm),
		enqueuer,
		log,
	)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	go worker.RunSweep(ctx)

	worker.Run(ctx)
	log.Info("worker stopped")
}
