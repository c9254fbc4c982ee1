package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/anonto42/nano-midea/notifier/internal/models"
)

// SubscriptionStore is the part of the subscription registry the web push channel needs.
type SubscriptionStore interface {
	ListByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error)
	RemoveExpired(ctx context.Context, subscriptionID string) error
}

type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the contact (mailto: or https:) sent in the VAPID claims.
	Subscriber string
	TTL        time.Duration
	HTTPClient *http.Client
}

type sendFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// WebPushChannel delivers directly to every browser endpoint registered for a user.
type WebPushChannel struct {
	store    SubscriptionStore
	cfg      WebPushConfig
	send     sendFunc
	logger   *slog.Logger
	warnOnce sync.Once
}

func NewWebPushChannel(store SubscriptionStore, cfg WebPushConfig, logger *slog.Logger) *WebPushChannel {
	return &WebPushChannel{
		store:  store,
		cfg:    cfg,
		send:   webpush.SendNotificationWithContext,
		logger: loggerOrDefault(logger).With("channel", "webpush"),
	}
}

func (c *WebPushChannel) Name() string { return "webpush" }

func (c *WebPushChannel) configured() bool {
	return c.cfg.VAPIDPublicKey != "" && c.cfg.VAPIDPrivateKey != ""
}

// Send pushes n to each of the user's subscriptions independently. Endpoints the
// push service reports as gone are removed from the registry.
func (c *WebPushChannel) Send(ctx context.Context, target Target, n models.Notification) (models.ChannelResult, error) {
	result := models.ChannelResult{Channel: c.Name()}
	if !c.configured() {
		c.warnOnce.Do(func() {
			c.logger.Warn("VAPID keys not configured, web push disabled")
		})
		result.Detail = models.ErrChannelNotConfigured.Error()
		return result, nil
	}

	subs, err := c.store.ListByUserID(ctx, target.UserID)
	if err != nil {
		return result, err
	}
	if len(subs) == 0 {
		result.Detail = "no subscriptions"
		return result, nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return result, fmt.Errorf("encode web push payload: %w", err)
	}

	result.Attempted = true
	result.Subscriptions = make([]models.SubscriptionResult, 0, len(subs))
	for _, sub := range subs {
		r := c.sendOne(ctx, sub, payload)
		if r.Status == models.DeliverySent {
			result.Delivered = true
		}
		result.Subscriptions = append(result.Subscriptions, r)
	}
	return result, nil
}

func (c *WebPushChannel) sendOne(ctx context.Context, sub models.PushSubscription, payload []byte) models.SubscriptionResult {
	res := models.SubscriptionResult{SubscriptionID: sub.ID, Endpoint: sub.Endpoint}
	log := c.logger.With("subscription_id", sub.ID, "user_id", sub.UserID)

	resp, err := c.send(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, c.options())
	if err != nil {
		log.Warn("web push failed", "error", err)
		res.Status = models.DeliveryFailed
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	res.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		if err := c.store.RemoveExpired(ctx, sub.ID); err != nil {
			log.Error("failed to remove expired subscription", "error", err)
			res.Status = models.DeliveryFailed
			res.Error = fmt.Sprintf("endpoint gone, removal failed: %v", err)
			return res
		}
		log.Info("removed expired subscription", "status", resp.StatusCode)
		res.Status = models.DeliveryDeleted
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.Status = models.DeliverySent
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn("push service rejected notification", "status", resp.StatusCode, "body", string(body))
		res.Status = models.DeliveryFailed
		res.Error = fmt.Sprintf("push service responded %d: %s", resp.StatusCode, string(body))
	}
	return res
}

func (c *WebPushChannel) options() *webpush.Options {
	opts := &webpush.Options{
		Subscriber:      strings.TrimPrefix(c.cfg.Subscriber, "mailto:"),
		VAPIDPublicKey:  c.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: c.cfg.VAPIDPrivateKey,
		TTL:             int(c.cfg.TTL / time.Second),
		Urgency:         webpush.UrgencyNormal,
	}
	if c.cfg.HTTPClient != nil {
		opts.HTTPClient = c.cfg.HTTPClient
	}
	return opts
}
