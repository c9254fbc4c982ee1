// Package notifier is the single entry point the application uses to notify a user.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/channels"
	"github.com/anonto42/nano-midea/notifier/internal/models"
)

const (
	defaultTestTitle = "Test notification"
	defaultTestBody  = "Push notifications are working."
)

// DeliveryRecorder stores the outcome of a dispatch for auditing.
type DeliveryRecorder interface {
	Record(ctx context.Context, entry *models.DeliveryLog) error
}

// Dispatcher fans a notification out over its channels. The primary channel is
// the registry-backed direct transport; the rest are redundant fan-out channels.
type Dispatcher struct {
	primary  channels.Channel
	fanout   []channels.Channel
	recorder DeliveryRecorder
	baseURL  string
	logger   *slog.Logger
}

type Option func(*Dispatcher)

// WithRecorder enables the delivery audit log.
func WithRecorder(r DeliveryRecorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithBaseURL sets the prefix the fixed-shape helpers use for deep links.
func WithBaseURL(u string) Option {
	return func(d *Dispatcher) { d.baseURL = u }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func NewDispatcher(primary channels.Channel, fanout []channels.Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		primary: primary,
		fanout:  fanout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendToUser pushes n through the primary channel. Success means the user had at
// least one subscription and delivery was attempted; individual subscriptions may
// still have failed. Registry errors are returned to the caller.
func (d *Dispatcher) SendToUser(ctx context.Context, userID string, n models.Notification) (*models.DispatchResult, error) {
	res, err := d.primary.Send(ctx, channels.UserTarget(userID), n)
	if err != nil {
		return nil, err
	}
	out := &models.DispatchResult{
		Success:  res.Attempted,
		Results:  subscriptionResults(res),
		Channels: []models.ChannelResult{res},
	}
	d.record(ctx, userID, n, out)
	return out, nil
}

// Notify pushes n through every channel. It succeeds when the primary channel
// attempted delivery or any fan-out channel delivered. Channel errors are joined
// and returned after all channels have run.
func (d *Dispatcher) Notify(ctx context.Context, userID string, n models.Notification) (*models.DispatchResult, error) {
	out, errs := d.broadcast(ctx, userID, n)
	d.record(ctx, userID, n, out)
	return out, errors.Join(errs...)
}

// SendTest sends a diagnostic push over every channel independently and reports
// whether at least one of them got through.
func (d *Dispatcher) SendTest(ctx context.Context, userID, title, body string) bool {
	if title == "" {
		title = defaultTestTitle
	}
	if body == "" {
		body = defaultTestBody
	}
	n := models.Notification{Title: title, Body: body, Tag: "test", URL: d.link("/")}

	out, errs := d.broadcast(ctx, userID, n)
	for _, err := range errs {
		d.logger.Error("test push channel error", "user_id", userID, "error", err)
	}
	d.record(ctx, userID, n, out)
	return out.Success
}

func (d *Dispatcher) broadcast(ctx context.Context, userID string, n models.Notification) (*models.DispatchResult, []error) {
	target := channels.UserTarget(userID)
	out := &models.DispatchResult{Results: []models.SubscriptionResult{}}
	var errs []error

	primary, err := d.primary.Send(ctx, target, n)
	if err != nil {
		errs = append(errs, err)
		primary.Detail = err.Error()
	}
	out.Success = primary.Attempted
	out.Results = subscriptionResults(primary)
	out.Channels = append(out.Channels, primary)

	for _, ch := range d.fanout {
		res, err := ch.Send(ctx, target, n)
		if err != nil {
			errs = append(errs, err)
			res.Detail = err.Error()
		}
		if res.Delivered {
			out.Success = true
		}
		out.Channels = append(out.Channels, res)
	}
	return out, errs
}

func (d *Dispatcher) record(ctx context.Context, userID string, n models.Notification, out *models.DispatchResult) {
	if d.recorder == nil {
		return
	}
	entry := &models.DeliveryLog{
		UserID:    userID,
		Title:     n.Title,
		Success:   out.Success,
		Channels:  out.Channels,
		CreatedAt: time.Now(),
	}
	if err := d.recorder.Record(ctx, entry); err != nil {
		d.logger.Warn("failed to record delivery log", "user_id", userID, "error", err)
	}
}

func subscriptionResults(res models.ChannelResult) []models.SubscriptionResult {
	if res.Subscriptions == nil {
		return []models.SubscriptionResult{}
	}
	return res.Subscriptions
}
