package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/shared"
)

// ChargeStatus is the processor-side lifecycle of a charge. It is not a ledger fact.
type ChargeStatus string

const (
	ChargeStatusCreated   ChargeStatus = "CREATED"
	ChargeStatusFailed    ChargeStatus = "FAILED"
	ChargeStatusSucceeded ChargeStatus = "SUCCEEDED"
)

// Rank orders statuses so late deliveries cannot move a charge backwards.
// A retried charge may fail and later succeed, never the reverse.
func (s ChargeStatus) Rank() int {
	switch s {
	case ChargeStatusCreated:
		return 1
	case ChargeStatusFailed:
		return 2
	case ChargeStatusSucceeded:
		return 3
	}
	return 0
}

// StatusFor maps a charge event to the status it asserts
func StatusFor(t EventType) ChargeStatus {
	switch t {
	case EventChargeSucceeded:
		return ChargeStatusSucceeded
	case EventChargeFailed:
		return ChargeStatusFailed
	default:
		return ChargeStatusCreated
	}
}

// Charge tracks the latest known state of one processor charge
type Charge struct {
	ChargeID    string        `json:"charge_id" bson:"charge_id"`
	CustomerID  string        `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	MemberID    *uuid.UUID    `json:"member_id,omitempty" bson:"member_id,omitempty"`
	Status      ChargeStatus  `json:"status" bson:"status"`
	StatusRank  int           `json:"-" bson:"status_rank"`
	Amount      shared.Amount `json:"amount" bson:"amount"`
	Currency    string        `json:"currency,omitempty" bson:"currency,omitempty"`
	EntryIDs    []uuid.UUID   `json:"entry_ids,omitempty" bson:"entry_ids,omitempty"`
	LastEventID string        `json:"last_event_id" bson:"last_event_id"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`
}

// CanAdvanceTo reports whether next may replace the current status
func (c *Charge) CanAdvanceTo(next ChargeStatus) bool {
	return next.Rank() > c.Status.Rank()
}

// Customer is the processor's view of a customer, linked to a member when reconciled
type Customer struct {
	CustomerID  string     `json:"customer_id" bson:"customer_id"`
	MemberID    *uuid.UUID `json:"member_id,omitempty" bson:"member_id,omitempty"`
	Email       string     `json:"email,omitempty" bson:"email,omitempty"`
	Reconciled  bool       `json:"reconciled" bson:"reconciled"`
	LastEventID string     `json:"last_event_id" bson:"last_event_id"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}
