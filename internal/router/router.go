package router

import (
	"context"
	"log/slog"

	"github.com/anonto42/nano-midea/notifier/internal/handlers"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Postgres       *gorm.DB
	Mongo          *mongo.Client
	Subscriptions  repositories.PushSubscriptionRepository
	Deliveries     repositories.DeliveryLogRepository
	Tester         handlers.PushTester
	Auth           echo.MiddlewareFunc
	VAPIDPublicKey string
	Logger         *slog.Logger
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, logger *slog.Logger) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestID())
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	}))
	logger.Debug("global middleware configured")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	healthHandler := handlers.NewHealthHandler(deps.Postgres, deps.Mongo)
	e.GET("/health", healthHandler.HealthCheck)

	pushHandler := handlers.NewPushHandler(deps.Subscriptions, deps.Deliveries, deps.Tester, deps.VAPIDPublicKey, logger)

	public := e.Group("/api/v1")
	pushHandler.RegisterPublicRoutes(public)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(deps.Auth)
	pushHandler.RegisterPushRoutes(api)

	logger.Info("routes configured")
}
