package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/membership-ledger/internal/domain/payment"
)

// ChargeRepository implements payment.ChargeRepository
type ChargeRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewChargeRepository(logger *slog.Logger, db *mongo.Database) payment.ChargeRepository {
	return &ChargeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ChargeRepository) Get(ctx context.Context, chargeID string) (*payment.Charge, error) {
	collection := r.db.Collection(ChargesCollectionName)

	var charge payment.Charge
	err := collection.FindOne(ctx, bson.M{"_id": chargeID}).Decode(&charge)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, payment.ErrChargeNotFound{ChargeID: chargeID}
		}
		r.logger.Error("Failed to get charge", "charge_id", chargeID, "error", err)
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}

	return &charge, nil
}

// Advance writes the charge only if its status ranks above the stored one.
// When the stored status is equal or higher the filter misses, the upsert
// collides on _id and Advance reports false.
func (r *ChargeRepository) Advance(ctx context.Context, charge *payment.Charge) (bool, error) {
	collection := r.db.Collection(ChargesCollectionName)

	doc := *charge
	doc.StatusRank = doc.Status.Rank()

	filter := bson.M{
		"_id":         charge.ChargeID,
		"status_rank": bson.M{"$lt": doc.StatusRank},
	}
	_, err := collection.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		r.logger.Error("Failed to advance charge", "charge_id", charge.ChargeID, "status", string(charge.Status), "error", err)
		return false, fmt.Errorf("failed to advance charge: %w", err)
	}

	return true, nil
}
