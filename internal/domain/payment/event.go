package payment

import (
	"strings"
	"time"

	"github.com/membership-ledger/internal/domain/shared"
)

// EventType is the kind of notification received from the card processor
type EventType string

const (
	EventChargeCreated   EventType = "charge.created"
	EventChargeSucceeded EventType = "charge.succeeded"
	EventChargeFailed    EventType = "charge.failed"
	EventCustomerCreated EventType = "customer.created"
	EventCustomerUpdated EventType = "customer.updated"
)

func (t EventType) IsCharge() bool {
	return t == EventChargeCreated || t == EventChargeSucceeded || t == EventChargeFailed
}

func (t EventType) IsCustomer() bool {
	return t == EventCustomerCreated || t == EventCustomerUpdated
}

// Purpose decides which account a successful charge is credited to
type Purpose string

const (
	PurposeDues Purpose = "dues"
	PurposeFee  Purpose = "fee"
)

// Event is a processor notification. Delivery is at-least-once and unordered.
type Event struct {
	EventID            string        `json:"event_id" bson:"event_id"`
	Type               EventType     `json:"event_type" bson:"event_type"`
	ExternalCustomerID string        `json:"external_customer_id,omitempty" bson:"external_customer_id,omitempty"`
	ExternalChargeID   string        `json:"external_charge_id,omitempty" bson:"external_charge_id,omitempty"`
	Amount             shared.Amount `json:"amount" bson:"amount"`
	Fee                shared.Amount `json:"fee,omitempty" bson:"fee,omitempty"`
	Currency           string        `json:"currency,omitempty" bson:"currency,omitempty"`
	Purpose            Purpose       `json:"purpose,omitempty" bson:"purpose,omitempty"`
	CustomerEmail      string        `json:"customer_email,omitempty" bson:"customer_email,omitempty"`
	PaymentMethod      string        `json:"payment_method,omitempty" bson:"payment_method,omitempty"` // empty means the default method
	OccurredAt         time.Time     `json:"occurred_at" bson:"occurred_at"`
}

// Validate rejects events that cannot be applied whatever the ledger state
func (e *Event) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return &PaymentProcessorError{Reason: "missing event_id"}
	}
	switch {
	case e.Type.IsCharge():
		if strings.TrimSpace(e.ExternalChargeID) == "" {
			return &PaymentProcessorError{EventID: e.EventID, Reason: "missing external_charge_id for " + string(e.Type)}
		}
	case e.Type.IsCustomer():
		if strings.TrimSpace(e.ExternalCustomerID) == "" {
			return &PaymentProcessorError{EventID: e.EventID, Reason: "missing external_customer_id for " + string(e.Type)}
		}
	default:
		return &PaymentProcessorError{EventID: e.EventID, Reason: "unknown event_type " + string(e.Type)}
	}
	if e.Purpose != "" && e.Purpose != PurposeDues && e.Purpose != PurposeFee {
		return &PaymentProcessorError{EventID: e.EventID, Reason: "unknown purpose " + string(e.Purpose)}
	}
	return nil
}

// ChargeReference is the ledger idempotency key of the gross payment entry.
func ChargeReference(chargeID string) string {
	return "charge:" + chargeID
}

// ChargeFeeReference is the ledger idempotency key of the processor fee entry.
func ChargeFeeReference(chargeID string) string {
	return "charge:" + chargeID + ":fee"
}
