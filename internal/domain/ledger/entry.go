package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/shared"
)

// Role selects which side of an entry an account must appear on
type Role string

const (
	RoleDebit  Role = "DEBIT"
	RoleCredit Role = "CREDIT"
	RoleEither Role = "EITHER"
)

func (r Role) Valid() bool {
	return r == RoleDebit || r == RoleCredit || r == RoleEither
}

// Posting is a request to append one entry to the ledger
type Posting struct {
	DebitAccountID    uuid.UUID     `json:"debit_account_id"`
	CreditAccountID   uuid.UUID     `json:"credit_account_id"`
	Amount            shared.Amount `json:"amount"`
	EffectiveDate     time.Time     `json:"effective_date"`
	Description       string        `json:"description"`
	IsAutomated       bool          `json:"is_automated"`
	IsRecurring       bool          `json:"is_recurring"`
	ExternalReference string        `json:"external_reference,omitempty"`

	reverses *uuid.UUID
}

// Validate checks the shape of the posting. Account existence is checked by the engine.
func (p Posting) Validate() error {
	if p.DebitAccountID == uuid.Nil || p.CreditAccountID == uuid.Nil {
		return &InvalidEntryError{Err: ErrMissingAccount}
	}
	if !p.Amount.IsPositive() {
		return &InvalidEntryError{Err: ErrNonPositiveAmount}
	}
	if p.DebitAccountID == p.CreditAccountID {
		return &InvalidEntryError{Err: ErrSameAccount}
	}
	if p.EffectiveDate.IsZero() {
		return &InvalidEntryError{Err: ErrMissingEffectiveDate}
	}
	return nil
}

// Entry is an immutable double-entry record. Corrections are new entries.
type Entry struct {
	ID                uuid.UUID     `json:"id" bson:"id"`
	DebitAccountID    uuid.UUID     `json:"debit_account_id" bson:"debit_account_id"`
	CreditAccountID   uuid.UUID     `json:"credit_account_id" bson:"credit_account_id"`
	Amount            shared.Amount `json:"amount" bson:"amount"` // minor units
	EffectiveDate     time.Time     `json:"effective_date" bson:"effective_date"`
	CreatedAt         time.Time     `json:"created_at" bson:"created_at"`
	Description       string        `json:"description" bson:"description"`
	IsAutomated       bool          `json:"is_automated" bson:"is_automated"`
	IsRecurring       bool          `json:"is_recurring" bson:"is_recurring"`
	ExternalReference string        `json:"external_reference,omitempty" bson:"external_reference,omitempty"`
	ReversesEntryID   *uuid.UUID    `json:"reverses_entry_id,omitempty" bson:"reverses_entry_id,omitempty"`
}

// NewEntry builds an entry from a validated posting.
// created_at is truncated to microseconds so it round-trips through PostgreSQL.
func NewEntry(p Posting, now time.Time) (*Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Entry{
		ID:                uuid.New(),
		DebitAccountID:    p.DebitAccountID,
		CreditAccountID:   p.CreditAccountID,
		Amount:            p.Amount,
		EffectiveDate:     shared.DateOf(p.EffectiveDate),
		CreatedAt:         now.UTC().Truncate(time.Microsecond),
		Description:       p.Description,
		IsAutomated:       p.IsAutomated,
		IsRecurring:       p.IsRecurring,
		ExternalReference: p.ExternalReference,
		ReversesEntryID:   p.reverses,
	}, nil
}

// ReversalReference is the idempotency key used for the reversal of an entry.
func ReversalReference(entryID uuid.UUID) string {
	return "reversal:" + entryID.String()
}

// ReversalPosting swaps the sides of e so that posting it offsets e exactly.
func (e *Entry) ReversalPosting(effectiveDate time.Time, description string) Posting {
	id := e.ID
	return Posting{
		DebitAccountID:    e.CreditAccountID,
		CreditAccountID:   e.DebitAccountID,
		Amount:            e.Amount,
		EffectiveDate:     effectiveDate,
		Description:       description,
		IsAutomated:       e.IsAutomated,
		IsRecurring:       e.IsRecurring,
		ExternalReference: ReversalReference(e.ID),
		reverses:          &id,
	}
}

// Reverses reports the entry this posting offsets, if any.
func (p Posting) Reverses() *uuid.UUID {
	return p.reverses
}

// Matches reports whether the account appears on the requested side of the entry
func (e *Entry) Matches(accountID uuid.UUID, role Role) bool {
	switch role {
	case RoleDebit:
		return e.DebitAccountID == accountID
	case RoleCredit:
		return e.CreditAccountID == accountID
	default:
		return e.DebitAccountID == accountID || e.CreditAccountID == accountID
	}
}
