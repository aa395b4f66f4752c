package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/membership-ledger/internal/domain/store"
	"github.com/membership-ledger/internal/platform/persistence"
)

// pool is what the store needs from a connection pool. *pgxpool.Pool and pgxmock pools satisfy it.
type pool interface {
	persistence.Querier
	persistence.TxBeginner
}

// Store implements store.Store on PostgreSQL
type Store struct {
	db       pool
	accounts *AccountRepository
	entries  *EntryRepository
	members  *MemberRepository
	outbox   *OutboxRepository
}

var _ store.Store = (*Store)(nil)

func NewStore(logger *slog.Logger, db *persistence.PostgresDB) *Store {
	return newStore(logger, db.Pool())
}

func newStore(logger *slog.Logger, db pool) *Store {
	return &Store{
		db:       db,
		accounts: &AccountRepository{querier: db, logger: logger.With("repository", "accounts")},
		entries:  &EntryRepository{querier: db, logger: logger.With("repository", "entries")},
		members:  &MemberRepository{querier: db, logger: logger.With("repository", "members")},
		outbox:   &OutboxRepository{querier: db, logger: logger.With("repository", "outbox")},
	}
}

func (s *Store) Repositories() store.Repositories {
	return store.Repositories{
		Accounts: s.accounts,
		Entries:  s.entries,
		Members:  s.members,
		Outbox:   s.outbox,
	}
}

// WithinTx runs fn in one read committed transaction. Repositories handed to fn share the transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	return persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, store.Repositories{
			Accounts: s.accounts.WithTx(tx),
			Entries:  s.entries.WithTx(tx),
			Members:  s.members.WithTx(tx),
			Outbox:   s.outbox.WithTx(tx),
		})
	})
}
