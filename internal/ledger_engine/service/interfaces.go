package service

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/domain/store"
)

// LedgerService is the public surface of the ledger engine
type LedgerService interface {
	PostEntry(ctx context.Context, posting ledger.Posting) (uuid.UUID, error)
	PostEntries(ctx context.Context, postings []ledger.Posting) ([]uuid.UUID, error)
	ReverseEntry(ctx context.Context, entryID uuid.UUID, effectiveDate time.Time, description string) (uuid.UUID, error)
	Balance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (shared.Amount, error)
	EntriesFor(ctx context.Context, accountID uuid.UUID, role ledger.Role) iter.Seq2[*ledger.Entry, error]
	CheckInvariant(ctx context.Context) error
}

// Poster appends entries inside a unit of work owned by the caller
type Poster interface {
	Post(ctx context.Context, repos store.Repositories, posting ledger.Posting) (uuid.UUID, error)
}
