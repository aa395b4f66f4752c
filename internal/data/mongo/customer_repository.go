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

// CustomerRepository implements payment.CustomerRepository
type CustomerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewCustomerRepository(logger *slog.Logger, db *mongo.Database) payment.CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert replaces the stored snapshot of the customer
func (r *CustomerRepository) Upsert(ctx context.Context, customer *payment.Customer) error {
	collection := r.db.Collection(CustomersCollectionName)

	_, err := collection.ReplaceOne(ctx, bson.M{"_id": customer.CustomerID}, customer, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to store processor customer", "customer_id", customer.CustomerID, "error", err)
		return fmt.Errorf("failed to store processor customer: %w", err)
	}

	return nil
}

func (r *CustomerRepository) Get(ctx context.Context, customerID string) (*payment.Customer, error) {
	collection := r.db.Collection(CustomersCollectionName)

	var customer payment.Customer
	err := collection.FindOne(ctx, bson.M{"_id": customerID}).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, payment.ErrCustomerNotFound{CustomerID: customerID}
		}
		r.logger.Error("Failed to get processor customer", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to get processor customer: %w", err)
	}

	return &customer, nil
}
