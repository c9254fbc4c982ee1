package repositories

import (
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables owned by the push subsystem.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.PushSubscription{},
		&models.NotificationOutboxEntry{},
	)
}
