package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/platform/persistence"
)

const externalReferenceConstraint = "ledger_entries_external_reference_key"

const entryColumns = `id, debit_account_id, credit_account_id, amount, effective_date, created_at,
		description, is_automated, is_recurring, COALESCE(external_reference, ''), reverses_entry_id`

// EntryRepository implements the append-only ledger.Repository for PostgreSQL.
// Immutability is also enforced by a trigger on ledger_entries.
type EntryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &EntryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *EntryRepository) WithTx(tx pgx.Tx) *EntryRepository {
	return &EntryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends an entry. A taken external reference yields ErrDuplicateReference.
func (r *EntryRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, debit_account_id, credit_account_id, amount, effective_date, created_at,
			description, is_automated, is_recurring, external_reference, reverses_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.DebitAccountID,
		entry.CreditAccountID,
		entry.Amount,
		entry.EffectiveDate,
		entry.CreatedAt,
		entry.Description,
		entry.IsAutomated,
		entry.IsRecurring,
		entry.ExternalReference,
		entry.ReversesEntryID,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, externalReferenceConstraint) {
			return ledger.ErrDuplicateReference{Reference: entry.ExternalReference}
		}
		r.logger.Error("Failed to create ledger entry", "id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = $1
	`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// GetByExternalReference returns nil, nil when the reference is unused
func (r *EntryRepository) GetByExternalReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE external_reference = $1
	`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger entry by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry by reference: %w", err)
	}

	return entry, nil
}

// ListByAccount pages through an account's entries with a keyset cursor on
// (effective_date, created_at, id). A limit of zero or less returns everything.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, role ledger.Role, after *ledger.Cursor, limit int) ([]*ledger.Entry, error) {
	var match string
	switch role {
	case ledger.RoleDebit:
		match = "debit_account_id = $1"
	case ledger.RoleCredit:
		match = "credit_account_id = $1"
	case ledger.RoleEither:
		match = "(debit_account_id = $1 OR credit_account_id = $1)"
	default:
		return nil, &ledger.InvalidEntryError{Err: ledger.ErrInvalidRole}
	}

	args := []interface{}{accountID}
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE ` + match
	if after != nil {
		query += `
		AND (effective_date, created_at, id) > ($2, $3, $4)`
		args = append(args, after.EffectiveDate, after.CreatedAt, after.ID)
	}
	query += `
		ORDER BY effective_date, created_at, id`
	if limit > 0 {
		args = append(args, limit)
		query += `
		LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// SumsForAccount totals the debit and credit sides of an account, optionally up to asOf
func (r *EntryRepository) SumsForAccount(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (ledger.Sums, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN debit_account_id = $1 THEN amount ELSE 0 END), 0)::BIGINT,
			COALESCE(SUM(CASE WHEN credit_account_id = $1 THEN amount ELSE 0 END), 0)::BIGINT
		FROM ledger_entries
		WHERE (debit_account_id = $1 OR credit_account_id = $1)
		AND ($2::DATE IS NULL OR effective_date <= $2::DATE)
	`

	var cutoff *time.Time
	if asOf != nil {
		d := shared.DateOf(*asOf)
		cutoff = &d
	}

	var sums ledger.Sums
	if err := r.querier.QueryRow(ctx, query, accountID, cutoff).Scan(&sums.Debits, &sums.Credits); err != nil {
		r.logger.Error("Failed to sum ledger entries", "account_id", accountID.String(), "error", err)
		return ledger.Sums{}, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	return sums, nil
}

// Totals reads the per-type totals and the entry total in one statement so they share a snapshot
func (r *EntryRepository) Totals(ctx context.Context) (*ledger.Totals, error) {
	query := `
		WITH sides AS (
			SELECT debit_account_id AS account_id, amount AS debits, 0::BIGINT AS credits FROM ledger_entries
			UNION ALL
			SELECT credit_account_id, 0::BIGINT, amount FROM ledger_entries
		)
		SELECT a.account_type, SUM(s.debits)::BIGINT, SUM(s.credits)::BIGINT,
			(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM ledger_entries),
			(SELECT COUNT(*) FROM ledger_entries)
		FROM sides s
		JOIN ledger_accounts a ON a.id = s.account_id
		GROUP BY a.account_type
		ORDER BY a.account_type
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to compute ledger totals", "error", err)
		return nil, fmt.Errorf("failed to compute ledger totals: %w", err)
	}
	defer rows.Close()

	totals := &ledger.Totals{}
	for rows.Next() {
		var tt ledger.TypeTotals
		if err := rows.Scan(&tt.Type, &tt.Debits, &tt.Credits, &totals.EntryTotal, &totals.EntryCount); err != nil {
			r.logger.Error("Failed to scan ledger totals", "error", err)
			return nil, fmt.Errorf("failed to scan ledger totals: %w", err)
		}
		totals.ByType = append(totals.ByType, tt)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating ledger totals", "error", err)
		return nil, fmt.Errorf("error iterating ledger totals: %w", err)
	}

	return totals, nil
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(
		&e.ID,
		&e.DebitAccountID,
		&e.CreditAccountID,
		&e.Amount,
		&e.EffectiveDate,
		&e.CreatedAt,
		&e.Description,
		&e.IsAutomated,
		&e.IsRecurring,
		&e.ExternalReference,
		&e.ReversesEntryID,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
