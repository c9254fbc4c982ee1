package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/notifier/internal/middleware"
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PushTester sends a diagnostic notification over every channel.
type PushTester interface {
	SendTest(ctx context.Context, userID, title, body string) bool
}

// PushHandler serves the device registration and push diagnostics endpoints.
type PushHandler struct {
	subscriptions  repositories.PushSubscriptionRepository
	deliveries     repositories.DeliveryLogRepository
	tester         PushTester
	vapidPublicKey string
	logger         *slog.Logger
}

// NewPushHandler creates a PushHandler. deliveries may be nil when the delivery log is disabled.
func NewPushHandler(subs repositories.PushSubscriptionRepository, deliveries repositories.DeliveryLogRepository, tester PushTester, vapidPublicKey string, logger *slog.Logger) *PushHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushHandler{
		subscriptions:  subs,
		deliveries:     deliveries,
		tester:         tester,
		vapidPublicKey: vapidPublicKey,
		logger:         logger,
	}
}

// RegisterPublicRoutes registers the endpoints reachable without a token.
func (h *PushHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/push/vapid-public-key", h.GetVAPIDPublicKey)
}

// RegisterPushRoutes registers the authenticated push endpoints.
func (h *PushHandler) RegisterPushRoutes(g *echo.Group) {
	g.POST("/push/subscribe", h.Subscribe)
	g.POST("/push/unsubscribe", h.Unsubscribe)
	g.GET("/push/status", h.GetStatus)
	g.POST("/push/test", h.SendTest)
	g.GET("/push/deliveries", h.GetDeliveries)
}

func (h *PushHandler) GetVAPIDPublicKey(c echo.Context) error {
	if h.vapidPublicKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Web push is not configured")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"publicKey": h.vapidPublicKey},
	})
}

// Subscribe registers the posted endpoint for the current user, taking it over
// from any previous owner.
func (h *PushHandler) Subscribe(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request().UserAgent()
	}

	id, err := h.subscriptions.Subscribe(c.Request().Context(), userID, req)
	if err != nil {
		return h.httpError("subscribe", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data":    echo.Map{"subscriptionId": id},
	})
}

func (h *PushHandler) Unsubscribe(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UnsubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.subscriptions.Unsubscribe(c.Request().Context(), userID, req.Endpoint); err != nil {
		return h.httpError("unsubscribe", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Unsubscribed",
	})
}

func (h *PushHandler) GetStatus(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	subs, err := h.subscriptions.ListByUserID(c.Request().Context(), userID)
	if err != nil {
		return h.httpError("list subscriptions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"subscribed": len(subs) > 0,
			"count":      len(subs),
		},
	})
}

// SendTest pushes a test notification to all of the caller's devices.
func (h *PushHandler) SendTest(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.TestPushRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ok := h.tester.SendTest(c.Request().Context(), userID, req.Title, req.Body)
	message := "Test notification sent"
	if !ok {
		message = "No channel could deliver the test notification"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": ok,
		"message": message,
	})
}

func (h *PushHandler) GetDeliveries(c echo.Context) error {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if h.deliveries == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Delivery log is not configured")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	logs, err := h.deliveries.ListByUser(c.Request().Context(), userID, int64(limit))
	if err != nil {
		return h.httpError("list deliveries", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"deliveries": logs},
	})
}

func (h *PushHandler) httpError(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidSubscription), errors.Is(err, models.ErrMalformedPayload):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrStorageUnavailable):
		h.logger.Error("push storage unavailable", "op", op, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Storage temporarily unavailable")
	default:
		h.logger.Error("push request failed", "op", op, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
