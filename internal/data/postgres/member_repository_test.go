package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var memberRowColumns = []string{
	"id", "name", "email", "account_id", "membership_level_id", "external_customer_id",
	"last_billed_date", "created_at", "updated_at",
}

func TestMemberRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MemberRepository{querier: mock, logger: newTestLogger()}
	accountID, levelID := uuid.New(), uuid.New()
	m, err := member.NewMember("Ada", "ada@example.org", &accountID, &levelID, shared.NewDate(2024, time.January, 31), time.Now())
	require.NoError(t, err)
	m.ExternalCustomerID = "cus_1"

	query := regexp.QuoteMeta(`INSERT INTO members`)
	args := []interface{}{m.ID, m.Name, m.Email, m.AccountID, m.MembershipLevelID, "cus_1", m.LastBilledDate, m.CreatedAt, m.UpdatedAt}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, m))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("customer already linked", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: externalCustomerConstraint})

		err := repo.Create(ctx, m)
		assert.ErrorAs(t, err, &member.ErrDuplicateCustomer{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMemberRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MemberRepository{querier: mock, logger: newTestLogger()}
	now := time.Now().UTC()
	id := uuid.New()
	levelID := uuid.New()
	query := regexp.QuoteMeta(`FROM members WHERE id = $1 FOR UPDATE`)

	t.Run("member without account", func(t *testing.T) {
		rows := pgxmock.NewRows(memberRowColumns).
			AddRow(id, "Grace", "", (*uuid.UUID)(nil), &levelID, "", shared.NewDate(2024, time.February, 29), now, now)
		mock.ExpectQuery(query).WithArgs(id).WillReturnRows(rows)

		m, err := repo.LockForUpdate(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, m.AccountID)
		assert.Equal(t, levelID, *m.MembershipLevelID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockForUpdate(ctx, id)
		assert.ErrorIs(t, err, member.ErrMemberNotFound{MemberID: id})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMemberRepository_GetByExternalCustomerID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MemberRepository{querier: mock, logger: newTestLogger()}
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE external_customer_id = $1`)).WithArgs("cus_missing").WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByExternalCustomerID(ctx, "cus_missing")
	var notFound member.ErrMemberNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "cus_missing", notFound.CustomerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_ListDue(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MemberRepository{querier: mock, logger: newTestLogger()}
	a, b := uuid.New(), uuid.New()
	asOf := time.Date(2024, time.February, 29, 23, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`make_interval(months => l.billing_interval_months))::DATE <= $1`)).
		WithArgs(shared.NewDate(2024, time.February, 29)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a).AddRow(b))

	ids, err := repo.ListDue(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_UpdateLastBilled(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MemberRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()
	date := shared.NewDate(2024, time.March, 31)
	query := regexp.QuoteMeta(`UPDATE members SET last_billed_date = $1, updated_at = $2 WHERE id = $3 AND last_billed_date <= $1`)

	t.Run("advanced", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(date, pgxmock.AnyArg(), id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateLastBilled(ctx, id, date))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("regression rejected", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectExec(query).WithArgs(date, pgxmock.AnyArg(), id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM members WHERE id = $1`)).WithArgs(id).
			WillReturnRows(pgxmock.NewRows(memberRowColumns).
				AddRow(id, "Grace", "", (*uuid.UUID)(nil), (*uuid.UUID)(nil), "", shared.NewDate(2024, time.April, 30), now, now))

		err := repo.UpdateLastBilled(ctx, id, date)
		assert.ErrorIs(t, err, member.ErrBillingDateRegression)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing member", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(date, pgxmock.AnyArg(), id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM members WHERE id = $1`)).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		err := repo.UpdateLastBilled(ctx, id, date)
		assert.ErrorIs(t, err, member.ErrMemberNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMemberRepository_SetExternalCustomerID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MemberRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()
	query := regexp.QuoteMeta(`SET external_customer_id = NULLIF($1, '')`)

	mock.ExpectExec(query).WithArgs("cus_9", pgxmock.AnyArg(), id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.SetExternalCustomerID(ctx, id, "cus_9"), member.ErrMemberNotFound{MemberID: id})

	mock.ExpectExec(query).WithArgs("cus_9", pgxmock.AnyArg(), id).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: externalCustomerConstraint})
	assert.ErrorAs(t, repo.SetExternalCustomerID(ctx, id, "cus_9"), &member.ErrDuplicateCustomer{})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_Levels(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MemberRepository{querier: mock, logger: newTestLogger()}
	level := &member.MembershipLevel{
		ID:                    uuid.New(),
		Name:                  "Full",
		FeeAmount:             5000,
		BillingIntervalMonths: 1,
		RevenueAccountID:      uuid.New(),
		HasKeyfob:             true,
		HasVoting:             true,
		CreatedAt:             time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO membership_levels`)).
		WithArgs(level.ID, level.Name, level.FeeAmount, 1, level.RevenueAccountID, true, false, true, false, level.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.CreateLevel(ctx, level))

	query := regexp.QuoteMeta(`FROM membership_levels WHERE id = $1`)
	mock.ExpectQuery(query).WithArgs(level.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "fee_amount", "billing_interval_months", "revenue_account_id",
			"has_keyfob", "has_room_key", "has_voting", "has_powertool_access", "created_at"}).
			AddRow(level.ID, level.Name, level.FeeAmount, 1, level.RevenueAccountID, true, false, true, false, level.CreatedAt))
	got, err := repo.GetLevel(ctx, level.ID)
	require.NoError(t, err)
	assert.Equal(t, level, got)

	missing := uuid.New()
	mock.ExpectQuery(query).WithArgs(missing).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetLevel(ctx, missing)
	assert.ErrorAs(t, err, &member.ErrLevelNotFound{})

	assert.NoError(t, mock.ExpectationsWereMet())
}
