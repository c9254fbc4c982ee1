package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/anonto42/nano-midea/notifier/internal/channels"
	"github.com/anonto42/nano-midea/notifier/internal/notifier"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/anonto42/nano-midea/notifier/internal/worker"
	"github.com/anonto42/nano-midea/notifier/pkg/config"
	"github.com/anonto42/nano-midea/notifier/pkg/firebase"
)

// The outbox worker assumes it is the only instance draining the outbox.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize databases", "error", err)
		os.Exit(1)
	}
	defer db.CloseDB()

	if err := repositories.AutoMigrate(db.Postgres); err != nil {
		logger.Error("failed to auto migrate models", "error", err)
		os.Exit(1)
	}

	firebaseApp, err := firebase.InitOptional(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		logger.Error("failed to initialize firebase", "error", err)
		os.Exit(1)
	}

	deps := notifier.Deps{
		Subscriptions: repositories.NewPostgresPushSubscriptionRepository(db.Postgres),
		Logger:        logger,
	}
	if firebaseApp != nil {
		deps.Messaging = channels.MessagingClient(firebaseApp.Messaging)
	}
	if db.Mongo != nil {
		deps.Recorder = repositories.NewMongoDeliveryLogRepository(db.Mongo.Database(cfg.MongoDatabase))
	}

	outbox := repositories.NewPostgresOutboxRepository(db.Postgres)
	w := worker.NewOutboxWorker(outbox, notifier.New(cfg, deps), worker.Config{
		Interval:    cfg.OutboxPollInterval,
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
	}, logger)

	if n, err := w.DeadLettered(ctx); err == nil && n > 0 {
		logger.Warn("outbox has dead-lettered entries", "count", n)
	}

	if err := w.Run(ctx); err != nil {
		logger.Error("outbox worker failed", "error", err)
		os.Exit(1)
	}
}
