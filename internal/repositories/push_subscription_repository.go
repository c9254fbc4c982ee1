package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushSubscriptionRepository is the subscription registry: the single source of truth
// for which user owns which push endpoint.
type PushSubscriptionRepository interface {
	Subscribe(ctx context.Context, userID string, req models.SubscribeRequest) (string, error)
	Unsubscribe(ctx context.Context, userID, endpoint string) error
	ListByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error)
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)
	RemoveExpired(ctx context.Context, subscriptionID string) error
}

type postgresPushSubscriptionRepository struct {
	db *gorm.DB
}

func NewPostgresPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &postgresPushSubscriptionRepository{db: db}
}

// Subscribe registers endpoint for userID. The row is looked up by endpoint alone:
// an unseen endpoint is inserted, a known endpoint gets its keys rotated, and an
// endpoint owned by someone else is reassigned to userID in the same update.
func (r *postgresPushSubscriptionRepository) Subscribe(ctx context.Context, userID string, req models.SubscribeRequest) (string, error) {
	if userID == "" || !req.Valid() {
		return "", models.ErrInvalidSubscription
	}

	var id string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PushSubscription
		err := tx.Where("endpoint = ?", req.Endpoint).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub := models.PushSubscription{
				UserID:    userID,
				Endpoint:  req.Endpoint,
				P256dh:    req.Keys.P256dh,
				Auth:      req.Keys.Auth,
				UserAgent: req.UserAgent,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "endpoint"}},
				DoNothing: true,
			}).Create(&sub)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				id = sub.ID
				return nil
			}
			// A concurrent subscribe inserted the endpoint first; take it over below.
			if err := tx.Where("endpoint = ?", req.Endpoint).Take(&existing).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		// Same owner rotates credentials; a different owner takes the endpoint over.
		if err := tx.Model(&existing).Updates(map[string]any{
			"user_id":    userID,
			"p256dh":     req.Keys.P256dh,
			"auth":       req.Keys.Auth,
			"user_agent": req.UserAgent,
		}).Error; err != nil {
			return err
		}
		id = existing.ID
		return nil
	})
	if err != nil {
		return "", storageError("subscribe", err)
	}
	return id, nil
}

// Unsubscribe removes the endpoint only while it still belongs to userID.
func (r *postgresPushSubscriptionRepository) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{}).Error
	if err != nil {
		return storageError("unsubscribe", err)
	}
	return nil
}

func (r *postgresPushSubscriptionRepository) ListByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	subs := []models.PushSubscription{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, storageError("list subscriptions", err)
	}
	return subs, nil
}

func (r *postgresPushSubscriptionRepository) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	subs, err := r.ListByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(subs) > 0, nil
}

// RemoveExpired hard-deletes a subscription whose endpoint the transport reported gone.
func (r *postgresPushSubscriptionRepository) RemoveExpired(ctx context.Context, subscriptionID string) error {
	err := r.db.WithContext(ctx).Delete(&models.PushSubscription{}, "id = ?", subscriptionID).Error
	if err != nil {
		return storageError("remove expired subscription", err)
	}
	return nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStorageUnavailable, op, err)
}
