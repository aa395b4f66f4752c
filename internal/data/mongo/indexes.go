package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the secondary indexes used for operational lookups.
// Documents are keyed by processor ids in _id, so uniqueness needs no extra index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		EventsCollectionName: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "received_at", Value: 1}}, Options: options.Index().SetName("state_received_at")},
			{Keys: bson.D{{Key: "event.external_charge_id", Value: 1}}, Options: options.Index().SetName("external_charge_id")},
		},
		ChargesCollectionName: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}}, Options: options.Index().SetName("customer_id")},
		},
		CustomersCollectionName: {
			{Keys: bson.D{{Key: "member_id", Value: 1}}, Options: options.Index().SetName("member_id").SetSparse(true)},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
