package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeliveryLogRepository keeps an audit trail of dispatch outcomes.
type DeliveryLogRepository interface {
	Record(ctx context.Context, entry *models.DeliveryLog) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.DeliveryLog, error)
}

// MongoDeliveryLogRepository implements DeliveryLogRepository for MongoDB
type MongoDeliveryLogRepository struct {
	collection *mongo.Collection
}

// NewMongoDeliveryLogRepository creates a new MongoDeliveryLogRepository
func NewMongoDeliveryLogRepository(db *mongo.Database) *MongoDeliveryLogRepository {
	return &MongoDeliveryLogRepository{collection: db.Collection("delivery_logs")}
}

func (r *MongoDeliveryLogRepository) Record(ctx context.Context, entry *models.DeliveryLog) error {
	entry.ID = primitive.NewObjectID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return storageError("record delivery log", err)
	}
	return nil
}

// ListByUser returns the newest delivery logs for a user.
func (r *MongoDeliveryLogRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]models.DeliveryLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, storageError("list delivery logs", err)
	}
	defer cursor.Close(ctx)

	logs := []models.DeliveryLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, storageError("decode delivery logs", err)
	}
	return logs, nil
}
