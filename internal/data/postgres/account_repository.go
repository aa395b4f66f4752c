// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a transaction with WithTx so that the
// ledger engine and the billing engine get one atomic unit of work.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const accountColumns = `id, name, account_type, active, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, acc *account.LedgerAccount) error {
	query := `
		INSERT INTO ledger_accounts (id, name, account_type, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Name,
		acc.Type,
		acc.Active,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to create ledger account: %w", err)
	}

	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.LedgerAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM ledger_accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get ledger account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}

	return acc, nil
}

// List returns every account, oldest first
func (r *AccountRepository) List(ctx context.Context) ([]*account.LedgerAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM ledger_accounts
		ORDER BY created_at, id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list ledger accounts", "error", err)
		return nil, fmt.Errorf("failed to list ledger accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.LedgerAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger account", "error", err)
			return nil, fmt.Errorf("failed to scan ledger account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating ledger accounts", "error", err)
		return nil, fmt.Errorf("error iterating ledger accounts: %w", err)
	}

	return accounts, nil
}

// Update persists the mutable fields. Type and creation time never change.
func (r *AccountRepository) Update(ctx context.Context, acc *account.LedgerAccount) error {
	query := `
		UPDATE ledger_accounts
		SET name = $1, active = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, acc.Name, acc.Active, acc.UpdatedAt, acc.ID)
	if err != nil {
		r.logger.Error("Failed to update ledger account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update ledger account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: acc.ID}
	}

	return nil
}

// LockForUpdate takes row locks in ascending id order, so concurrent postings
// touching the same pair of accounts cannot deadlock.
func (r *AccountRepository) LockForUpdate(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*account.LedgerAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM ledger_accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to lock ledger accounts", "ids", ids, "error", err)
		return nil, fmt.Errorf("failed to lock ledger accounts: %w", err)
	}
	defer rows.Close()

	locked := make(map[uuid.UUID]*account.LedgerAccount, len(ids))
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan locked ledger account", "error", err)
			return nil, fmt.Errorf("failed to scan locked ledger account: %w", err)
		}
		locked[acc.ID] = acc
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating locked ledger accounts", "error", err)
		return nil, fmt.Errorf("error iterating locked ledger accounts: %w", err)
	}

	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
	}

	return locked, nil
}

func scanAccount(row pgx.Row) (*account.LedgerAccount, error) {
	var acc account.LedgerAccount
	err := row.Scan(
		&acc.ID,
		&acc.Name,
		&acc.Type,
		&acc.Active,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
