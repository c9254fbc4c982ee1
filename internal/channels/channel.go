// Package channels holds the transports a notification can travel over.
//
// A channel reports transport problems inside its ChannelResult. The error
// return is reserved for failures of the system itself, such as the
// subscription registry being unreachable, which callers may retry.
package channels

import (
	"context"
	"log/slog"

	"github.com/anonto42/nano-midea/notifier/internal/models"
)

// Target identifies the recipient of a notification. UserID addresses the
// subscription registry; ExternalID is the stable alias aggregators know the user by.
type Target struct {
	UserID     string
	ExternalID string
}

// UserTarget addresses a user whose external alias equals the internal id.
func UserTarget(userID string) Target {
	return Target{UserID: userID, ExternalID: userID}
}

type Channel interface {
	Name() string
	Send(ctx context.Context, target Target, n models.Notification) (models.ChannelResult, error)
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
