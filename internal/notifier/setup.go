package notifier

import (
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/channels"
	"github.com/anonto42/nano-midea/notifier/pkg/config"
)

// Deps are the collaborators the dispatcher is assembled from. Messaging and
// Recorder may be nil, which disables the FCM channel and the delivery log.
type Deps struct {
	Subscriptions channels.SubscriptionStore
	Messaging     channels.MessagingClient
	Recorder      DeliveryRecorder
	Logger        *slog.Logger
}

// New builds a Dispatcher with the web push channel as primary and the
// aggregator and FCM channels as fan-out.
func New(cfg *config.Config, deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	webPush := channels.NewWebPushChannel(deps.Subscriptions, channels.WebPushConfig{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.VAPIDSubject,
		TTL:             cfg.PushTTL,
	}, logger)
	aggregator := channels.NewAggregatorChannel(channels.AggregatorConfig{
		AppID:   cfg.OneSignalAppID,
		APIKey:  cfg.OneSignalAPIKey,
		BaseURL: cfg.OneSignalAPIURL,
		Timeout: 10 * time.Second,
	}, logger)
	fcm := channels.NewFCMTopicChannel(deps.Messaging, logger)

	opts := []Option{WithBaseURL(cfg.AppBaseURL), WithLogger(logger)}
	if deps.Recorder != nil {
		opts = append(opts, WithRecorder(deps.Recorder))
	}
	return NewDispatcher(webPush, []channels.Channel{aggregator, fcm}, opts...)
}
