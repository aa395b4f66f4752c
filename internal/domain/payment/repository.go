package payment

import (
	"context"
	"time"
)

// EventState is the processing state of a recorded event
type EventState string

const (
	EventStateReceived EventState = "RECEIVED"
	EventStateApplied  EventState = "APPLIED"
	EventStateRejected EventState = "REJECTED"

	// EventStateUnreconciled events named a customer or member the ledger could not
	// post for yet. A later delivery applies them once the member is linked.
	EventStateUnreconciled EventState = "UNRECONCILED"
)

// EventRecord is the event log document for one processor event
type EventRecord struct {
	Event      Event      `bson:"event"`
	State      EventState `bson:"state"`
	Reason     string     `bson:"reason,omitempty"`
	Attempts   int        `bson:"attempts"`
	ReceivedAt time.Time  `bson:"received_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

// Finished reports whether a redelivery of this event can be skipped.
// Unreconciled events are not finished.
func (r *EventRecord) Finished() bool {
	return r.State == EventStateApplied || r.State == EventStateRejected
}

// EventLog records processor events keyed by event id
type EventLog interface {
	// Record stores the event if unseen, otherwise bumps attempts; returns the stored record
	Record(ctx context.Context, event *Event) (*EventRecord, error)
	MarkApplied(ctx context.Context, eventID string) error
	MarkRejected(ctx context.Context, eventID string, reason string) error
	MarkUnreconciled(ctx context.Context, eventID string, reason string) error
}

// ChargeRepository tracks charge status outside the ledger
type ChargeRepository interface {
	Get(ctx context.Context, chargeID string) (*Charge, error)

	// Advance writes the charge only when its status outranks the stored one.
	// Returns false when the stored status already wins.
	Advance(ctx context.Context, charge *Charge) (bool, error)
}

// CustomerRepository stores processor customer snapshots
type CustomerRepository interface {
	Upsert(ctx context.Context, customer *Customer) error
	Get(ctx context.Context, customerID string) (*Customer, error)
}

// ErrChargeNotFound indicates no status has been recorded for a charge
type ErrChargeNotFound struct {
	ChargeID string
}

func (e ErrChargeNotFound) Error() string {
	return "charge not found: " + e.ChargeID
}

// ErrCustomerNotFound indicates no snapshot exists for a processor customer
type ErrCustomerNotFound struct {
	CustomerID string
}

func (e ErrCustomerNotFound) Error() string {
	return "processor customer not found: " + e.CustomerID
}
