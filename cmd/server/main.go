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

	"github.com/anonto42/nano-midea/notifier/internal/channels"
	"github.com/anonto42/nano-midea/notifier/internal/middleware"
	"github.com/anonto42/nano-midea/notifier/internal/notifier"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/anonto42/nano-midea/notifier/internal/router"
	"github.com/anonto42/nano-midea/notifier/pkg/config"
	"github.com/anonto42/nano-midea/notifier/pkg/firebase"
	"github.com/anonto42/nano-midea/notifier/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)
	if err := cfg.ValidateAuth(); err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

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

	subscriptions := repositories.NewPostgresPushSubscriptionRepository(db.Postgres)
	deps := notifier.Deps{Subscriptions: subscriptions, Logger: logger}
	var deliveries repositories.DeliveryLogRepository
	if db.Mongo != nil {
		logRepo := repositories.NewMongoDeliveryLogRepository(db.Mongo.Database(cfg.MongoDatabase))
		deliveries = logRepo
		deps.Recorder = logRepo
	}

	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	if firebaseApp != nil {
		deps.Messaging = channels.MessagingClient(firebaseApp.Messaging)
		auth = middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient)
	}
	dispatcher := notifier.New(cfg, deps)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	router.SetupMiddleware(e, logger)
	router.SetupRoutes(e, router.Deps{
		Postgres:       db.Postgres,
		Mongo:          db.Mongo,
		Subscriptions:  subscriptions,
		Deliveries:     deliveries,
		Tester:         dispatcher,
		Auth:           auth,
		VAPIDPublicKey: cfg.VAPIDPublicKey,
		Logger:         logger,
	})

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
