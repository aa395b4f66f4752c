// Package mongo stores the payment processor side of the system: the event
// log used for delivery idempotency, charge status documents and processor
// customer snapshots. None of it is a ledger fact.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/membership-ledger/internal/domain/payment"
)

const (
	EventsCollectionName    = "payment_events"
	ChargesCollectionName   = "payment_charges"
	CustomersCollectionName = "payment_customers"
)

// EventLogRepository implements payment.EventLog keyed by processor event id
type EventLogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewEventLogRepository(logger *slog.Logger, db *mongo.Database) payment.EventLog {
	return &EventLogRepository{
		db:     db,
		logger: logger,
	}
}

// Record inserts the event on first delivery and bumps the attempt counter on
// every delivery. Two racing first deliveries collide on _id; the loser retries as an update.
func (r *EventLogRepository) Record(ctx context.Context, event *payment.Event) (*payment.EventRecord, error) {
	rec, err := r.record(ctx, event)
	if mongo.IsDuplicateKeyError(err) {
		rec, err = r.record(ctx, event)
	}
	if err != nil {
		r.logger.Error("Failed to record payment event", "event_id", event.EventID, "error", err)
		return nil, fmt.Errorf("failed to record payment event: %w", err)
	}
	return rec, nil
}

func (r *EventLogRepository) record(ctx context.Context, event *payment.Event) (*payment.EventRecord, error) {
	collection := r.db.Collection(EventsCollectionName)
	now := time.Now().UTC()

	filter := bson.M{"_id": event.EventID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"event":       event,
			"state":       payment.EventStateReceived,
			"received_at": now,
		},
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var rec payment.EventRecord
	if err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *EventLogRepository) MarkApplied(ctx context.Context, eventID string) error {
	return r.setState(ctx, eventID, payment.EventStateApplied, "")
}

func (r *EventLogRepository) MarkRejected(ctx context.Context, eventID string, reason string) error {
	return r.setState(ctx, eventID, payment.EventStateRejected, reason)
}

func (r *EventLogRepository) MarkUnreconciled(ctx context.Context, eventID string, reason string) error {
	return r.setState(ctx, eventID, payment.EventStateUnreconciled, reason)
}

func (r *EventLogRepository) setState(ctx context.Context, eventID string, state payment.EventState, reason string) error {
	collection := r.db.Collection(EventsCollectionName)

	update := bson.M{
		"$set": bson.M{
			"state":      state,
			"reason":     reason,
			"updated_at": time.Now().UTC(),
		},
	}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	if err != nil {
		r.logger.Error("Failed to update payment event state", "event_id", eventID, "state", string(state), "error", err)
		return fmt.Errorf("failed to update payment event state: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("payment event %s was never recorded", eventID)
	}

	return nil
}
