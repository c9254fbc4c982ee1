package models

import "errors"

var (
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvalidSubscription  = errors.New("invalid push subscription")
	ErrMalformedPayload     = errors.New("malformed outbox payload")
	ErrUnknownEventType     = errors.New("unknown outbox event type")
	ErrChannelNotConfigured = errors.New("push channel not configured")
	ErrNotFound             = errors.New("resource not found")
)
