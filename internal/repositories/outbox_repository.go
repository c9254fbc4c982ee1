package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"gorm.io/gorm"
)

// OutboxRepository is the durable notification outbox.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event models.Event) (string, error)
	FetchEligible(ctx context.Context, limit, maxAttempts int) ([]models.NotificationOutboxEntry, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, lastError string) error
	Get(ctx context.Context, id string) (*models.NotificationOutboxEntry, error)
	CountDeadLettered(ctx context.Context, maxAttempts int) (int64, error)
}

type postgresOutboxRepository struct {
	db *gorm.DB
}

func NewPostgresOutboxRepository(db *gorm.DB) OutboxRepository {
	return &postgresOutboxRepository{db: db}
}

// Enqueue validates and stores an event as a pending outbox row.
func (r *postgresOutboxRepository) Enqueue(ctx context.Context, event models.Event) (string, error) {
	if err := models.ValidateEvent(event); err != nil {
		return "", err
	}
	eventType, payload, err := models.EncodeEvent(event)
	if err != nil {
		return "", err
	}

	entry := models.NotificationOutboxEntry{
		EventType: eventType,
		Payload:   payload,
		Status:    models.OutboxStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return "", storageError("enqueue outbox entry", err)
	}
	return entry.ID, nil
}

// FetchEligible returns up to limit rows that are pending or failed and still under maxAttempts.
func (r *postgresOutboxRepository) FetchEligible(ctx context.Context, limit, maxAttempts int) ([]models.NotificationOutboxEntry, error) {
	var entries []models.NotificationOutboxEntry
	err := r.db.WithContext(ctx).
		Where("status IN ? AND attempt_count < ?",
			[]models.OutboxStatus{models.OutboxStatusPending, models.OutboxStatusFailed}, maxAttempts).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, storageError("fetch outbox entries", err)
	}
	return entries, nil
}

func (r *postgresOutboxRepository) MarkSent(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Model(&models.NotificationOutboxEntry{}).
		Where("id = ?", id).
		Update("status", models.OutboxStatusSent).Error
	if err != nil {
		return storageError("mark outbox entry sent", err)
	}
	return nil
}

// MarkFailed records a failed attempt in one UPDATE so the counter cannot be lost.
func (r *postgresOutboxRepository) MarkFailed(ctx context.Context, id, lastError string) error {
	err := r.db.WithContext(ctx).
		Model(&models.NotificationOutboxEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        models.OutboxStatusFailed,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    lastError,
		}).Error
	if err != nil {
		return storageError("mark outbox entry failed", err)
	}
	return nil
}

func (r *postgresOutboxRepository) Get(ctx context.Context, id string) (*models.NotificationOutboxEntry, error) {
	var entry models.NotificationOutboxEntry
	if err := r.db.WithContext(ctx).Take(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("outbox entry %s: %w", id, models.ErrNotFound)
		}
		return nil, storageError("get outbox entry", err)
	}
	return &entry, nil
}

// CountDeadLettered counts rows that exhausted their attempts and will not be retried.
func (r *postgresOutboxRepository) CountDeadLettered(ctx context.Context, maxAttempts int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NotificationOutboxEntry{}).
		Where("status = ? AND attempt_count >= ?", models.OutboxStatusFailed, maxAttempts).
		Count(&count).Error
	if err != nil {
		return 0, storageError("count dead-lettered entries", err)
	}
	return count, nil
}
