package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medicore/clinic-api/internal/core/domain"
)

const auditCollection = "auth_events"

// auditRetention is how long auth events are kept before the TTL index
// removes them.
const auditRetention = 180 * 24 * time.Hour

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(auditCollection)}
}

// Insert persists an authentication event to the auth_events audit collection.
func (r *AuditRepository) Insert(ctx context.Context, event *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"type":        string(event.Type),
		"at":          event.At.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if event.AccountID != "" {
		doc["account_id"] = event.AccountID
	}
	if event.Identifier != "" {
		doc["identifier"] = event.Identifier
	}
	if event.ActorID != "" {
		doc["actor_id"] = event.ActorID
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes on the auth_events collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, auditIndexes())
	return err
}

// auditIndexes lists the auth_events indexes. Expiry runs on recorded_at,
// the server write time, so a skewed event clock cannot shorten retention.
func auditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "recorded_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(auditRetention.Seconds()))},
	}
}
