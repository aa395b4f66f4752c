package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountRowColumns = []string{"id", "name", "account_type", "active", "created_at", "updated_at"}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	acc, err := account.NewLedgerAccount("Dues Receivable", account.TypeAsset, time.Now())
	require.NoError(t, err)

	query := regexp.QuoteMeta(`INSERT INTO ledger_accounts (id, name, account_type, active, created_at, updated_at)`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Name, acc.Type, true, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, acc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Name, acc.Type, true, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, acc)
		assert.ErrorContains(t, err, "failed to create ledger account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()
	expected := &account.LedgerAccount{
		ID:        uuid.New(),
		Name:      "Membership Dues",
		Type:      account.TypeIncome,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := regexp.QuoteMeta(`FROM ledger_accounts WHERE id = $1`)

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(accountRowColumns).
			AddRow(expected.ID, expected.Name, expected.Type, expected.Active, expected.CreatedAt, expected.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, expected.ID)
		assert.Nil(t, acc)
		var notFound account.ErrAccountNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, expected.ID, notFound.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(dbErr)

		acc, err := repo.GetByID(ctx, expected.ID)
		assert.Nil(t, acc)
		assert.ErrorContains(t, err, "failed to get ledger account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_List(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(uuid.New(), "Cash", account.TypeAsset, true, now, now).
		AddRow(uuid.New(), "Dues Revenue", account.TypeIncome, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at, id`)).WillReturnRows(rows)

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Cash", accounts[0].Name)
	assert.False(t, accounts[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	acc, err := account.NewLedgerAccount("Cash", account.TypeAsset, time.Now())
	require.NoError(t, err)
	acc.Deactivate(time.Now())

	query := regexp.QuoteMeta(`UPDATE ledger_accounts SET name = $1, active = $2, updated_at = $3 WHERE id = $4`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Name, false, acc.UpdatedAt, acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Update(ctx, acc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Name, false, acc.UpdatedAt, acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, acc)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: acc.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()
	debit, credit := uuid.New(), uuid.New()
	query := regexp.QuoteMeta(`WHERE id = ANY($1) ORDER BY id FOR UPDATE`)

	t.Run("both accounts locked", func(t *testing.T) {
		rows := pgxmock.NewRows(accountRowColumns).
			AddRow(debit, "Member", account.TypeLiability, true, now, now).
			AddRow(credit, "Dues", account.TypeIncome, true, now, now)
		mock.ExpectQuery(query).WithArgs([]uuid.UUID{debit, credit}).WillReturnRows(rows)

		locked, err := repo.LockForUpdate(ctx, debit, credit)
		require.NoError(t, err)
		assert.Len(t, locked, 2)
		assert.Equal(t, account.TypeIncome, locked[credit].Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		rows := pgxmock.NewRows(accountRowColumns).
			AddRow(debit, "Member", account.TypeLiability, true, now, now)
		mock.ExpectQuery(query).WithArgs([]uuid.UUID{debit, credit}).WillReturnRows(rows)

		locked, err := repo.LockForUpdate(ctx, debit, credit)
		assert.Nil(t, locked)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: credit})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
