package models

import (
	"encoding/json"
	"fmt"
)

type EventType string

const EventTypePushMessage EventType = "push_message"

// DefaultTitle is used when a push message event carries no title.
const DefaultTitle = "New notification"

// Event is the decoded payload of an outbox entry. The set of implementations
// is closed; the worker switches over them exhaustively.
type Event interface {
	Type() EventType
	sealed()
}

// PushMessageEvent asks for a push notification to be delivered to every device of TargetUserID.
type PushMessageEvent struct {
	TargetUserID string         `json:"targetUserId"`
	Title        string         `json:"title,omitempty"`
	Body         string         `json:"body"`
	Data         map[string]any `json:"data,omitempty"`
}

func (PushMessageEvent) Type() EventType { return EventTypePushMessage }
func (PushMessageEvent) sealed()         {}

// Routable reports whether the event names a recipient and has something to say.
func (e PushMessageEvent) Routable() bool {
	return e.TargetUserID != "" && e.Body != ""
}

// Notification builds the channel-level notification for the event.
func (e PushMessageEvent) Notification() Notification {
	n := Notification{Title: e.Title, Body: e.Body, Data: e.Data}
	if n.Title == "" {
		n.Title = DefaultTitle
	}
	if u, ok := e.Data["url"].(string); ok {
		n.URL = u
	}
	return n
}

// ValidateEvent rejects events that could never be delivered.
func ValidateEvent(e Event) error {
	switch ev := e.(type) {
	case PushMessageEvent:
		if ev.TargetUserID == "" {
			return fmt.Errorf("%w: targetUserId is required", ErrMalformedPayload)
		}
		if ev.Body == "" {
			return fmt.Errorf("%w: body is required", ErrMalformedPayload)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEventType, e)
	}
}

// DecodeEvent turns a stored outbox row back into its event.
func DecodeEvent(eventType EventType, payload string) (Event, error) {
	switch eventType {
	case EventTypePushMessage:
		var ev PushMessageEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
}

// EncodeEvent serializes an event into the type and payload columns of an outbox row.
func EncodeEvent(e Event) (EventType, string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", "", fmt.Errorf("encode %s event: %w", e.Type(), err)
	}
	return e.Type(), string(b), nil
}
