// Package store defines the unit of work shared by the ledger and billing engines.
package store

import (
	"context"

	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/outbox"
)

// Repositories bundles the repositories bound to one connection or transaction
type Repositories struct {
	Accounts account.Repository
	Entries  ledger.Repository
	Members  member.Repository
	Outbox   outbox.Repository
}

// Store hands out repositories and runs atomic units of work
type Store interface {
	// Repositories returns repositories that run each call on its own
	Repositories() Repositories

	// WithinTx runs fn with transaction-bound repositories. Nothing fn writes is
	// visible unless fn returns nil and the commit succeeds.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
