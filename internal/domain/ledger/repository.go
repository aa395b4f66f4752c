package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the append-only entry store. There is no update or delete.
type Repository interface {
	// Create returns ErrDuplicateReference when the external reference is taken
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetByExternalReference returns nil, nil when no entry carries the reference
	GetByExternalReference(ctx context.Context, reference string) (*Entry, error)

	// ListByAccount returns up to limit entries strictly after the cursor in stream order
	ListByAccount(ctx context.Context, accountID uuid.UUID, role Role, after *Cursor, limit int) ([]*Entry, error)

	SumsForAccount(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (Sums, error)
	Totals(ctx context.Context) (*Totals, error)
}
