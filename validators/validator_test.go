package validators

import (
	"strings"
	"testing"

	"github.com/anonto42/nano-midea/notifier/internal/models"
)

func TestValidate(t *testing.T) {
	v := NewValidator()

	ok := models.SubscribeRequest{Endpoint: "https://push.example/1", Keys: models.SubscriptionKeys{P256dh: "p", Auth: "a"}}
	if err := v.Validate(ok); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	missing := models.SubscribeRequest{Endpoint: "https://push.example/1", Keys: models.SubscriptionKeys{P256dh: "p"}}
	err := v.Validate(missing)
	if err == nil || !strings.Contains(err.Error(), "'Auth'") || !strings.Contains(err.Error(), "'required'") {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := v.Validate(models.TestPushRequest{Title: strings.Repeat("t", 121)}); err == nil {
		t.Fatal("expected max length error")
	}
}
