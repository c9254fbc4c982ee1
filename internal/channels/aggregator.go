package channels

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/pkg/httpclient"
)

const defaultAggregatorURL = "https://api.onesignal.com"

type AggregatorConfig struct {
	AppID   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// AggregatorChannel sends through a OneSignal-style push aggregator. The user is
// addressed by external alias and the aggregator fans out to all their devices.
type AggregatorChannel struct {
	appID    string
	client   *httpclient.Client
	logger   *slog.Logger
	warnOnce sync.Once
}

func NewAggregatorChannel(cfg AggregatorConfig, logger *slog.Logger) *AggregatorChannel {
	c := &AggregatorChannel{
		appID:  cfg.AppID,
		logger: loggerOrDefault(logger).With("channel", "onesignal"),
	}
	if cfg.AppID != "" && cfg.APIKey != "" {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultAggregatorURL
		}
		c.client = httpclient.New(baseURL, cfg.Timeout).WithHeader("Authorization", "Key "+cfg.APIKey)
	}
	return c
}

func (c *AggregatorChannel) Name() string { return "onesignal" }

type aggregatorRequest struct {
	AppID          string              `json:"app_id"`
	TargetChannel  string              `json:"target_channel"`
	IncludeAliases map[string][]string `json:"include_aliases"`
	Headings       map[string]string   `json:"headings"`
	Contents       map[string]string   `json:"contents"`
	URL            string              `json:"url,omitempty"`
	Data           map[string]any      `json:"data,omitempty"`
}

type aggregatorResponse struct {
	ID         string          `json:"id"`
	Recipients *int            `json:"recipients,omitempty"`
	Errors     json.RawMessage `json:"errors,omitempty"`
}

// noRecipients reports whether the aggregator accepted the call but matched no device.
func (r aggregatorResponse) noRecipients() bool {
	if r.ID == "" {
		return true
	}
	if r.Recipients != nil && *r.Recipients == 0 {
		return true
	}
	errs := string(r.Errors)
	return errs != "" && errs != "null" && errs != "[]" && errs != "{}"
}

func (c *AggregatorChannel) Send(ctx context.Context, target Target, n models.Notification) (models.ChannelResult, error) {
	result := models.ChannelResult{Channel: c.Name()}
	if c.client == nil {
		c.warnOnce.Do(func() {
			c.logger.Warn("aggregator credentials not configured, channel disabled")
		})
		result.Detail = models.ErrChannelNotConfigured.Error()
		return result, nil
	}
	if target.ExternalID == "" {
		result.Detail = "missing external id"
		return result, nil
	}

	req := aggregatorRequest{
		AppID:          c.appID,
		TargetChannel:  "push",
		IncludeAliases: map[string][]string{"external_id": {target.ExternalID}},
		Headings:       map[string]string{"en": n.Title},
		Contents:       map[string]string{"en": n.Body},
		URL:            n.URL,
		Data:           n.Data,
	}

	result.Attempted = true
	var resp aggregatorResponse
	if err := c.client.PostJSON(ctx, "/notifications", req, &resp); err != nil {
		c.logger.Warn("aggregator request failed", "user_id", target.UserID, "error", err)
		result.Detail = err.Error()
		return result, nil
	}
	if resp.noRecipients() {
		c.logger.Info("aggregator matched no recipients", "user_id", target.UserID, "errors", string(resp.Errors))
		result.Attempted = false
		result.Detail = "no recipients"
		return result, nil
	}

	result.Delivered = true
	result.Detail = resp.ID
	return result, nil
}
