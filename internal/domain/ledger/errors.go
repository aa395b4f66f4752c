package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/shared"
)

// Reasons carried by InvalidEntryError
var (
	ErrNonPositiveAmount    = errors.New("amount must be greater than zero")
	ErrSameAccount          = errors.New("debit and credit account must differ")
	ErrMissingAccount       = errors.New("debit and credit account are required")
	ErrMissingEffectiveDate = errors.New("effective date is required")
	ErrInvalidRole          = errors.New("role must be one of DEBIT, CREDIT, EITHER")
)

// InvalidEntryError is a malformed posting request. It is a caller bug and is never retried.
type InvalidEntryError struct {
	Err error
}

func (e *InvalidEntryError) Error() string {
	return "invalid ledger entry: " + e.Err.Error()
}

func (e *InvalidEntryError) Unwrap() error {
	return e.Err
}

// UnbalancedLedgerError reports a broken double-entry invariant. It is never repaired automatically.
type UnbalancedLedgerError struct {
	TotalDebits  shared.Amount
	TotalCredits shared.Amount
	EntryTotal   shared.Amount
}

func (e *UnbalancedLedgerError) Error() string {
	return fmt.Sprintf("ledger is unbalanced: debits=%s credits=%s entries=%s",
		e.TotalDebits, e.TotalCredits, e.EntryTotal)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target EntryID is empty, consider it a match for any ErrEntryNotFound
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateReference indicates an external reference uniqueness violation
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "duplicate external reference: " + e.Reference
}

// Is implements the errors.Is interface for ErrDuplicateReference
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}
