package models

import (
	"errors"
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		payload   string
		want      PushMessageEvent
		wantErr   error
	}{
		{
			name:      "full payload",
			eventType: EventTypePushMessage,
			payload:   `{"targetUserId":"u1","title":"T","body":"B","data":{"url":"/x"}}`,
			want:      PushMessageEvent{TargetUserID: "u1", Title: "T", Body: "B", Data: map[string]any{"url": "/x"}},
		},
		{
			name:      "missing body still decodes",
			eventType: EventTypePushMessage,
			payload:   `{"targetUserId":"u1"}`,
			want:      PushMessageEvent{TargetUserID: "u1"},
		},
		{name: "bad json", eventType: EventTypePushMessage, payload: `{"targetUserId":`, wantErr: ErrMalformedPayload},
		{name: "unknown type", eventType: "email", payload: `{}`, wantErr: ErrUnknownEventType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent(tt.eventType, tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeEvent: %v", err)
			}
			got, ok := ev.(PushMessageEvent)
			if !ok {
				t.Fatalf("decoded %T", ev)
			}
			if got.TargetUserID != tt.want.TargetUserID || got.Title != tt.want.Title || got.Body != tt.want.Body || len(got.Data) != len(tt.want.Data) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateEvent(t *testing.T) {
	if err := ValidateEvent(PushMessageEvent{TargetUserID: "u1", Body: "b"}); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	if err := ValidateEvent(PushMessageEvent{TargetUserID: "u1"}); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("missing body: %v", err)
	}
	if err := ValidateEvent(PushMessageEvent{Body: "b"}); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("missing target: %v", err)
	}
}

func TestPushMessageEvent_Notification(t *testing.T) {
	n := PushMessageEvent{TargetUserID: "u1", Body: "b", Data: map[string]any{"url": "/inbox"}}.Notification()
	if n.Title != DefaultTitle || n.URL != "/inbox" || n.Body != "b" {
		t.Fatalf("unexpected notification %+v", n)
	}

	n = PushMessageEvent{Title: "Custom", Body: "b", Data: map[string]any{"url": 42}}.Notification()
	if n.Title != "Custom" || n.URL != "" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestEncodeEventRoundTrip(t *testing.T) {
	in := PushMessageEvent{TargetUserID: "u1", Body: "hello"}
	typ, payload, err := EncodeEvent(in)
	if err != nil || typ != EventTypePushMessage {
		t.Fatalf("EncodeEvent = %q, %v", typ, err)
	}
	out, err := DecodeEvent(typ, payload)
	if err != nil || out.(PushMessageEvent).Body != "hello" {
		t.Fatalf("DecodeEvent = %+v, %v", out, err)
	}
}

func TestOutboxEntryEligible(t *testing.T) {
	tests := []struct {
		status   OutboxStatus
		attempts int
		want     bool
	}{
		{OutboxStatusPending, 0, true},
		{OutboxStatusFailed, 2, true},
		{OutboxStatusFailed, 3, false},
		{OutboxStatusSent, 0, false},
	}
	for _, tt := range tests {
		e := NotificationOutboxEntry{Status: tt.status, AttemptCount: tt.attempts}
		if got := e.Eligible(DefaultMaxAttempts); got != tt.want {
			t.Errorf("Eligible(%s, %d) = %v, want %v", tt.status, tt.attempts, got, tt.want)
		}
	}
}

func TestSubscribeRequestValid(t *testing.T) {
	ok := SubscribeRequest{Endpoint: "https://e", Keys: SubscriptionKeys{P256dh: "p", Auth: "a"}}
	if !ok.Valid() {
		t.Fatal("valid request rejected")
	}
	for _, r := range []SubscribeRequest{
		{Endpoint: " ", Keys: ok.Keys},
		{Endpoint: "https://e", Keys: SubscriptionKeys{Auth: "a"}},
		{Endpoint: "https://e", Keys: SubscriptionKeys{P256dh: "p"}},
	} {
		if r.Valid() {
			t.Errorf("invalid request accepted: %+v", r)
		}
	}
}

func TestDispatchResultFailure(t *testing.T) {
	tests := []struct {
		name     string
		channels []ChannelResult
		want     string
	}{
		{name: "nothing to send", channels: []ChannelResult{{Channel: "webpush"}, {Channel: "onesignal"}}},
		{
			name: "failed subscription",
			channels: []ChannelResult{{Channel: "webpush", Attempted: true, Subscriptions: []SubscriptionResult{
				{Status: DeliveryFailed, StatusCode: 503},
				{Status: DeliveryDeleted, StatusCode: 410},
			}}},
			want: "webpush: status 503",
		},
		{
			name: "delivered elsewhere",
			channels: []ChannelResult{
				{Channel: "webpush", Attempted: true, Subscriptions: []SubscriptionResult{{Status: DeliveryFailed, Error: "timeout"}}},
				{Channel: "fcm", Attempted: true, Delivered: true},
			},
		},
		{
			name: "attempted channels without subscriptions",
			channels: []ChannelResult{
				{Channel: "onesignal", Attempted: true, Detail: "502"},
				{Channel: "fcm", Attempted: true, Detail: "unavailable"},
			},
			want: "onesignal: 502; fcm: unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &DispatchResult{Channels: tt.channels}
			if got := r.Failure(); got != tt.want {
				t.Fatalf("Failure() = %q, want %q", got, tt.want)
			}
		})
	}
}
