package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// DefaultMaxAttempts is the number of failed processing attempts after which
// an outbox row is no longer picked up.
const DefaultMaxAttempts = 3

// NotificationOutboxEntry is a pending notification event written by a producer
// and drained by the outbox worker. Rows are never deleted.
type NotificationOutboxEntry struct {
	ID           string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	EventType    EventType    `json:"event_type" gorm:"type:varchar(50);not null"`
	Payload      string       `json:"payload" gorm:"type:text;not null"`
	Status       OutboxStatus `json:"status" gorm:"type:varchar(20);not null;default:pending;index:idx_outbox_eligible,priority:1"`
	AttemptCount int          `json:"attempt_count" gorm:"not null;default:0;index:idx_outbox_eligible,priority:2"`
	LastError    *string      `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (NotificationOutboxEntry) TableName() string {
	return "notification_outbox"
}

func (e *NotificationOutboxEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = OutboxStatusPending
	}
	return nil
}

// Eligible reports whether the worker may still process the entry.
func (e *NotificationOutboxEntry) Eligible(maxAttempts int) bool {
	return (e.Status == OutboxStatusPending || e.Status == OutboxStatusFailed) && e.AttemptCount < maxAttempts
}
