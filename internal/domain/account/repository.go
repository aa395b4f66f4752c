package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *LedgerAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*LedgerAccount, error)
	List(ctx context.Context) ([]*LedgerAccount, error)

	// Update persists name and active flag changes
	Update(ctx context.Context, account *LedgerAccount) error

	// LockForUpdate acquires row locks on the given accounts in ascending id order
	// and returns them keyed by id. Missing ids are reported as ErrAccountNotFound.
	LockForUpdate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*LedgerAccount, error)
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries no id
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
