package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/payment"
	"github.com/membership-ledger/internal/domain/shared"
)

// AccountService defines the account registry operations exposed over HTTP
type AccountService interface {
	// CreateAccount returns account.ErrEmptyName or account.ErrInvalidAccountType on bad input
	CreateAccount(ctx context.Context, name string, accountType account.Type) (*account.LedgerAccount, error)

	// GetAccountByID returns ErrAccountNotFound if the account doesn't exist
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.LedgerAccount, error)

	RenameAccount(ctx context.Context, id uuid.UUID, name string) (*account.LedgerAccount, error)

	// DeactivateAccount is idempotent. Entries of the account are kept.
	DeactivateAccount(ctx context.Context, id uuid.UUID) (*account.LedgerAccount, error)

	GetBalance(ctx context.Context, id uuid.UUID, asOf *time.Time) (shared.Amount, error)

	// ListEntries returns the first limit entries of the account's stream
	ListEntries(ctx context.Context, id uuid.UUID, role ledger.Role, limit int) ([]*ledger.Entry, error)
}

// EntryService defines manual posting operations
type EntryService interface {
	// PostManualEntry posts a non-automated entry and returns it
	PostManualEntry(ctx context.Context, posting ledger.Posting) (*ledger.Entry, error)

	// ReverseEntry returns the reversal, the same one on repeated calls
	ReverseEntry(ctx context.Context, entryID uuid.UUID, effectiveDate time.Time, description string) (*ledger.Entry, error)

	GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error)
}

// MemberService defines member and level operations
type MemberService interface {
	CreateLevel(ctx context.Context, level *member.MembershipLevel) (*member.MembershipLevel, error)
	CreateMember(ctx context.Context, params CreateMemberParams) (*member.Member, error)

	// GetMemberStatus computes billing standing and privileges as of asOf
	GetMemberStatus(ctx context.Context, id uuid.UUID, asOf time.Time) (*MemberStatus, error)

	// LinkCustomer returns member.ErrDuplicateCustomer when another member holds the id
	LinkCustomer(ctx context.Context, id uuid.UUID, customerID string) (*member.Member, error)
}

// WebhookService accepts signed processor notifications
type WebhookService interface {
	// AcceptEvent verifies the signature header, decodes the payload and enqueues it
	AcceptEvent(ctx context.Context, payload []byte, signature string) (*payment.Event, error)
}
