package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/billing"
)

// BillingService runs one recurring billing pass
type BillingService interface {
	DoRegularBilling(ctx context.Context, asOf time.Time) (*billing.Report, error)
}

// MemberBiller holds the steps of a billing run so that they can be scheduled differently
type MemberBiller interface {
	DueMembers(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)

	// BillMember posts every elapsed cycle of one member and advances its last billed date atomically
	BillMember(ctx context.Context, memberID uuid.UUID, asOf time.Time) (billing.MemberResult, error)

	// FinishRun orders the report and runs the optional invariant check
	FinishRun(ctx context.Context, report *billing.Report) error
}

// InvariantChecker verifies the whole ledger still balances
type InvariantChecker interface {
	CheckInvariant(ctx context.Context) error
}
