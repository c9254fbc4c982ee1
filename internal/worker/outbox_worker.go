// Package worker drains the notification outbox.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
)

// Notifier is the part of the dispatcher the worker needs.
type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notification) (*models.DispatchResult, error)
}

// Ticker abstracts time.Ticker so tests can fire ticks by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

type Config struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// OutboxWorker polls the outbox on a fixed interval and processes rows one at a
// time. Only one instance may run against a given outbox.
type OutboxWorker struct {
	outbox    repositories.OutboxRepository
	notifier  Notifier
	cfg       Config
	logger    *slog.Logger
	newTicker func(time.Duration) Ticker
}

func NewOutboxWorker(outbox repositories.OutboxRepository, notifier Notifier, cfg Config, logger *slog.Logger) *OutboxWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = models.DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxWorker{
		outbox:   outbox,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "outbox_worker"),
		newTicker: func(d time.Duration) Ticker {
			return timeTicker{time.NewTicker(d)}
		},
	}
}

// Run calls Tick on every interval until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := w.newTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started",
		"interval", w.cfg.Interval, "batch_size", w.cfg.BatchSize, "max_attempts", w.cfg.MaxAttempts)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return nil
		case <-ticker.C():
			if _, err := w.Tick(ctx); err != nil {
				w.logger.Error("error fetching outbox entries", "error", err)
			}
		}
	}
}

// Tick processes one batch of eligible rows and returns how many it handled.
// Row failures are written back to the row; only a failed fetch is returned.
func (w *OutboxWorker) Tick(ctx context.Context) (int, error) {
	entries, err := w.outbox.FetchEligible(ctx, w.cfg.BatchSize, w.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		w.processEntry(ctx, entry)
	}
	return len(entries), nil
}

func (w *OutboxWorker) processEntry(ctx context.Context, entry models.NotificationOutboxEntry) {
	log := w.logger.With("outbox_id", entry.ID, "event_type", entry.EventType, "attempt", entry.AttemptCount+1)

	if err := w.handle(ctx, entry); err != nil {
		if markErr := w.outbox.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
			log.Error("failed to record outbox failure", "error", markErr, "cause", err)
			return
		}
		if entry.AttemptCount+1 >= w.cfg.MaxAttempts {
			log.Error("outbox entry dead-lettered", "error", err)
			return
		}
		log.Warn("outbox entry failed, will retry", "error", err)
		return
	}

	if err := w.outbox.MarkSent(ctx, entry.ID); err != nil {
		log.Error("failed to mark outbox entry sent", "error", err)
		return
	}
	log.Debug("outbox entry sent")
}

func (w *OutboxWorker) handle(ctx context.Context, entry models.NotificationOutboxEntry) error {
	event, err := models.DecodeEvent(entry.EventType, entry.Payload)
	if err != nil {
		return err
	}

	switch ev := event.(type) {
	case models.PushMessageEvent:
		if !ev.Routable() {
			w.logger.Warn("push message without target or body, skipping", "outbox_id", entry.ID)
			return nil
		}
		res, err := w.notifier.Notify(ctx, ev.TargetUserID, ev.Notification())
		if err != nil {
			return fmt.Errorf("dispatch push message: %w", err)
		}
		if reason := res.Failure(); reason != "" {
			return fmt.Errorf("no channel delivered: %s", reason)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", models.ErrUnknownEventType, event.Type())
	}
}

// DeadLettered reports how many rows have exhausted their attempts.
func (w *OutboxWorker) DeadLettered(ctx context.Context) (int64, error) {
	return w.outbox.CountDeadLettered(ctx, w.cfg.MaxAttempts)
}
