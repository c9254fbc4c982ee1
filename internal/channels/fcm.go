package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/nano-midea/notifier/internal/models"
)

// MessagingClient is satisfied by *messaging.Client.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

var topicUnsafe = regexp.MustCompile(`[^a-zA-Z0-9\-_.~%]`)

// FCMTopicChannel publishes to a per-user Firebase Cloud Messaging topic that the
// user's app installs subscribe to.
type FCMTopicChannel struct {
	client   MessagingClient
	prefix   string
	logger   *slog.Logger
	warnOnce sync.Once
}

// NewFCMTopicChannel creates the channel; a nil client leaves it disabled.
func NewFCMTopicChannel(client MessagingClient, logger *slog.Logger) *FCMTopicChannel {
	return &FCMTopicChannel{
		client: client,
		prefix: "user_",
		logger: loggerOrDefault(logger).With("channel", "fcm"),
	}
}

func (c *FCMTopicChannel) Name() string { return "fcm" }

// Topic returns the FCM topic a user's devices subscribe to.
func (c *FCMTopicChannel) Topic(externalID string) string {
	return c.prefix + topicUnsafe.ReplaceAllString(externalID, "_")
}

func (c *FCMTopicChannel) Send(ctx context.Context, target Target, n models.Notification) (models.ChannelResult, error) {
	result := models.ChannelResult{Channel: c.Name()}
	if c.client == nil {
		c.warnOnce.Do(func() {
			c.logger.Warn("firebase messaging not configured, channel disabled")
		})
		result.Detail = models.ErrChannelNotConfigured.Error()
		return result, nil
	}
	if target.ExternalID == "" {
		result.Detail = "missing external id"
		return result, nil
	}

	msg := &messaging.Message{
		Topic: c.Topic(target.ExternalID),
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: stringData(n),
	}
	if strings.HasPrefix(n.URL, "https://") {
		msg.Webpush = &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: n.URL},
		}
	}

	result.Attempted = true
	id, err := c.client.Send(ctx, msg)
	if err != nil {
		c.logger.Warn("fcm send failed", "user_id", target.UserID, "error", err)
		result.Detail = err.Error()
		return result, nil
	}
	result.Delivered = true
	result.Detail = id
	return result, nil
}

// stringData flattens notification data into the string map FCM requires.
func stringData(n models.Notification) map[string]string {
	if len(n.Data) == 0 && n.URL == "" {
		return nil
	}
	out := make(map[string]string, len(n.Data)+1)
	for k, v := range n.Data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			if b, err := json.Marshal(val); err == nil {
				out[k] = string(b)
			} else {
				out[k] = fmt.Sprint(val)
			}
		}
	}
	if n.URL != "" {
		out["url"] = n.URL
	}
	return out
}
