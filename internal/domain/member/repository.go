package member

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines member and membership level persistence
type Repository interface {
	Create(ctx context.Context, member *Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)

	// GetByExternalCustomerID returns ErrMemberNotFound when no member is linked
	GetByExternalCustomerID(ctx context.Context, customerID string) (*Member, error)

	// ListDue returns ids of members with a level whose next bill date is on or before asOf
	ListDue(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)

	// LockForUpdate loads a member under a row lock for the rest of the transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Member, error)
	UpdateLastBilled(ctx context.Context, id uuid.UUID, lastBilled time.Time) error
	SetExternalCustomerID(ctx context.Context, id uuid.UUID, customerID string) error

	CreateLevel(ctx context.Context, level *MembershipLevel) error
	GetLevel(ctx context.Context, id uuid.UUID) (*MembershipLevel, error)
}

// ErrMemberNotFound indicates a missing member. CustomerID is set for lookups by processor customer.
type ErrMemberNotFound struct {
	MemberID   uuid.UUID
	CustomerID string
}

func (e ErrMemberNotFound) Error() string {
	if e.CustomerID != "" {
		return "member not found for customer: " + e.CustomerID
	}
	return "member not found: " + e.MemberID.String()
}

// Is matches any ErrMemberNotFound when the target is empty
func (e ErrMemberNotFound) Is(target error) bool {
	t, ok := target.(ErrMemberNotFound)
	if !ok {
		return false
	}
	if t.MemberID == uuid.Nil && t.CustomerID == "" {
		return true
	}
	return e.MemberID == t.MemberID && e.CustomerID == t.CustomerID
}

// ErrLevelNotFound indicates a missing membership level
type ErrLevelNotFound struct {
	LevelID uuid.UUID
}

func (e ErrLevelNotFound) Error() string {
	return "membership level not found: " + e.LevelID.String()
}

// ErrDuplicateCustomer indicates the processor customer is already linked to another member
type ErrDuplicateCustomer struct {
	CustomerID string
}

func (e ErrDuplicateCustomer) Error() string {
	return "processor customer already linked: " + e.CustomerID
}
