package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

type HealthHandler struct {
	postgres *gorm.DB
	mongo    *mongo.Client
}

// NewHealthHandler creates a HealthHandler; mongo may be nil.
func NewHealthHandler(postgres *gorm.DB, mongoClient *mongo.Client) *HealthHandler {
	return &HealthHandler{postgres: postgres, mongo: mongoClient}
}

// HealthCheck pings the backing stores and reports 503 if one is down.
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{"postgres": "ok"}
	healthy := true

	if sqlDB, err := h.postgres.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["postgres"] = "unavailable"
		healthy = false
	}
	if h.mongo != nil {
		checks["mongo"] = "ok"
		if err := h.mongo.Ping(ctx, nil); err != nil {
			checks["mongo"] = "unavailable"
			healthy = false
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":  status,
		"service": "notifier",
		"checks":  checks,
	})
}
