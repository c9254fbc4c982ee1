package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is one logical push, independent of the channel that carries it.
type Notification struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	URL   string         `json:"url,omitempty"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliveryDeleted DeliveryStatus = "deleted"
)

// SubscriptionResult is the outcome of a single direct push to one subscription.
type SubscriptionResult struct {
	SubscriptionID string         `json:"subscription_id" bson:"subscription_id"`
	Endpoint       string         `json:"endpoint" bson:"endpoint"`
	Status         DeliveryStatus `json:"status" bson:"status"`
	StatusCode     int            `json:"status_code,omitempty" bson:"status_code,omitempty"`
	Error          string         `json:"error,omitempty" bson:"error,omitempty"`
}

// ChannelResult is what one channel reports for one notification.
// Attempted is false when nothing went out (channel not configured, no devices).
type ChannelResult struct {
	Channel       string               `json:"channel" bson:"channel"`
	Attempted     bool                 `json:"attempted" bson:"attempted"`
	Delivered     bool                 `json:"delivered" bson:"delivered"`
	Detail        string               `json:"detail,omitempty" bson:"detail,omitempty"`
	Subscriptions []SubscriptionResult `json:"subscriptions,omitempty" bson:"subscriptions,omitempty"`
}

// DispatchResult summarizes a dispatch across channels.
type DispatchResult struct {
	Success  bool                 `json:"success"`
	Results  []SubscriptionResult `json:"results"`
	Channels []ChannelResult      `json:"channels,omitempty"`
}

// Failure describes why nothing was delivered. It returns "" when some channel
// delivered, or when no channel had anything to send to. Subscriptions removed
// as gone do not count as failures.
func (r *DispatchResult) Failure() string {
	var reasons []string
	for _, ch := range r.Channels {
		if ch.Delivered {
			return ""
		}
		if len(ch.Subscriptions) > 0 {
			for _, sub := range ch.Subscriptions {
				if sub.Status != DeliveryFailed {
					continue
				}
				reason := sub.Error
				if reason == "" {
					reason = fmt.Sprintf("status %d", sub.StatusCode)
				}
				reasons = append(reasons, ch.Channel+": "+reason)
			}
			continue
		}
		if ch.Attempted {
			reasons = append(reasons, ch.Channel+": "+ch.Detail)
		}
	}
	return strings.Join(reasons, "; ")
}

// DeliveryLog is the audit record of one dispatch (MongoDB).
type DeliveryLog struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string             `json:"user_id" bson:"user_id"`
	Title     string             `json:"title" bson:"title"`
	Success   bool               `json:"success" bson:"success"`
	Channels  []ChannelResult    `json:"channels" bson:"channels"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
