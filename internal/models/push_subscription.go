package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushSubscription binds one browser push endpoint to the user currently owning it (PostgreSQL).
// Endpoint is unique: a physical endpoint never belongs to two users at once.
type PushSubscription struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;index"`
	Endpoint  string    `json:"endpoint" gorm:"type:text;not null;uniqueIndex"`
	P256dh    string    `json:"-" gorm:"column:p256dh;type:text;not null"`
	Auth      string    `json:"-" gorm:"type:text;not null"`
	UserAgent string    `json:"user_agent,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// Keys returns the credential bundle of the subscription.
func (s *PushSubscription) Keys() SubscriptionKeys {
	return SubscriptionKeys{P256dh: s.P256dh, Auth: s.Auth}
}

// SubscriptionKeys is the credential bundle a browser hands out with its endpoint.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// SubscribeRequest is the body a client device posts when registering for push.
type SubscribeRequest struct {
	Endpoint  string           `json:"endpoint" validate:"required"`
	Keys      SubscriptionKeys `json:"keys" validate:"required"`
	UserAgent string           `json:"userAgent,omitempty" validate:"omitempty,max=512"`
}

// Valid reports whether the request carries everything the registry needs.
func (r SubscribeRequest) Valid() bool {
	return strings.TrimSpace(r.Endpoint) != "" && r.Keys.P256dh != "" && r.Keys.Auth != ""
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

type TestPushRequest struct {
	Title string `json:"title,omitempty" validate:"omitempty,max=120"`
	Body  string `json:"body,omitempty" validate:"omitempty,max=1000"`
}
