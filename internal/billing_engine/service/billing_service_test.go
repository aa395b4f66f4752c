package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/data/memory"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/billing"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
	"github.com/membership-ledger/internal/platform/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *memory.Store
	clock   *clock.Fixed
	engine  *ledgerservice.Engine
	service *BillingServiceImpl
	income  *account.LedgerAccount
	monthly *member.MembershipLevel
	logger  *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		clock:  clock.NewFixed(time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	f.engine = ledgerservice.NewEngine(f.store, f.clock, f.logger, 0)
	f.service = NewBillingService(f.store, f.engine, f.engine, f.clock, f.logger, true)
	f.income = f.account(t, "Membership income", account.TypeIncome)
	f.monthly = f.level(t, "Regular", 5000, 1, f.income.ID)
	return f
}

func (f *fixture) account(t *testing.T, name string, typ account.Type) *account.LedgerAccount {
	t.Helper()
	acc, err := account.NewLedgerAccount(name, typ, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Repositories().Accounts.Create(context.Background(), acc))
	return acc
}

func (f *fixture) level(t *testing.T, name string, fee shared.Amount, interval int, revenue uuid.UUID) *member.MembershipLevel {
	t.Helper()
	level := &member.MembershipLevel{
		ID:                    uuid.New(),
		Name:                  name,
		FeeAmount:             fee,
		BillingIntervalMonths: interval,
		RevenueAccountID:      revenue,
		HasVoting:             true,
	}
	require.NoError(t, f.store.Repositories().Members.CreateLevel(context.Background(), level))
	return level
}

// member creates a member with its own dues account unless withAccount is false
func (f *fixture) member(t *testing.T, name string, level *member.MembershipLevel, lastBilled time.Time, withAccount bool) *member.Member {
	t.Helper()
	var accountID *uuid.UUID
	if withAccount {
		acc := f.account(t, "Member dues: "+name, account.TypeLiability)
		accountID = &acc.ID
	}
	m, err := member.NewMember(name, "", accountID, &level.ID, lastBilled, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Repositories().Members.Create(context.Background(), m))
	return m
}

func (f *fixture) reload(t *testing.T, m *member.Member) *member.Member {
	t.Helper()
	got, err := f.store.Repositories().Members.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) shared.Amount {
	t.Helper()
	b, err := f.engine.Balance(context.Background(), id, nil)
	require.NoError(t, err)
	return b
}

func TestDoRegularBilling_LeapYearMonthEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "Ada", f.monthly, shared.NewDate(2024, time.January, 31), true)

	report, err := f.service.DoRegularBilling(ctx, shared.NewDate(2024, time.February, 28))
	require.NoError(t, err)
	assert.Zero(t, report.MembersDue)
	assert.Zero(t, report.EntriesPosted)

	report, err = f.service.DoRegularBilling(ctx, shared.NewDate(2024, time.February, 29))
	require.NoError(t, err)
	require.Len(t, report.Billed, 1)
	assert.Equal(t, 1, report.EntriesPosted)
	assert.Equal(t, shared.NewDate(2024, time.February, 29), f.reload(t, m).LastBilledDate)

	entry, err := f.store.Repositories().Entries.GetByID(ctx, report.Billed[0].EntryIDs[0])
	require.NoError(t, err)
	assert.Equal(t, *m.AccountID, entry.DebitAccountID)
	assert.Equal(t, f.income.ID, entry.CreditAccountID)
	assert.Equal(t, shared.Amount(5000), entry.Amount)
	assert.Equal(t, shared.NewDate(2024, time.February, 29), entry.EffectiveDate)
	assert.True(t, entry.IsAutomated)
	assert.True(t, entry.IsRecurring)
	assert.Equal(t, DuesReference(m.ID, entry.EffectiveDate), entry.ExternalReference)

	// one monthly cycle at 50.00 leaves the liability at -50.00
	assert.Equal(t, "-50.00", f.balance(t, *m.AccountID).String())
	assert.Equal(t, shared.Amount(5000), f.balance(t, f.income.ID))

	// the clamp carries forward: the next cycle is the 29th, not the 31st
	report, err = f.service.DoRegularBilling(ctx, shared.NewDate(2024, time.March, 29))
	require.NoError(t, err)
	assert.Equal(t, 1, report.EntriesPosted)
	assert.Equal(t, shared.NewDate(2024, time.March, 29), f.reload(t, m).LastBilledDate)
}

func TestDoRegularBilling_CatchesUpMissedCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "Ada", f.monthly, shared.NewDate(2024, time.January, 15), true)

	report, err := f.service.DoRegularBilling(ctx, shared.NewDate(2024, time.April, 20))
	require.NoError(t, err)
	require.Len(t, report.Billed, 1)
	assert.Equal(t, 3, report.EntriesPosted)
	assert.Equal(t, shared.NewDate(2024, time.April, 15), report.Billed[0].LastBilledDate)

	var dates []time.Time
	for e, err := range f.engine.EntriesFor(ctx, *m.AccountID, ledger.RoleDebit) {
		require.NoError(t, err)
		dates = append(dates, e.EffectiveDate)
	}
	assert.Equal(t, []time.Time{
		shared.NewDate(2024, time.February, 15),
		shared.NewDate(2024, time.March, 15),
		shared.NewDate(2024, time.April, 15),
	}, dates)
	assert.Equal(t, shared.Amount(-15000), f.balance(t, *m.AccountID))
}

func TestDoRegularBilling_IsIdempotentPerAsOf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, "Ada", f.monthly, shared.NewDate(2024, time.January, 15), true)
	f.member(t, "Grace", f.monthly, shared.NewDate(2024, time.January, 1), true)
	asOf := shared.NewDate(2024, time.March, 20)

	first, err := f.service.DoRegularBilling(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, 4, first.EntriesPosted)

	second, err := f.service.DoRegularBilling(ctx, asOf)
	require.NoError(t, err)
	assert.Zero(t, second.MembersDue)
	assert.Zero(t, second.EntriesPosted)

	totals, err := f.store.Repositories().Entries.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), totals.EntryCount)
}

func TestDoRegularBilling_IsolatesMemberFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	closedIncome := f.account(t, "Old income", account.TypeIncome)
	closedIncome.Deactivate(f.clock.Now())
	require.NoError(t, f.store.Repositories().Accounts.Update(ctx, closedIncome))
	closedLevel := f.level(t, "Legacy", 3000, 1, closedIncome.ID)
	missingRevenue := uuid.New()
	orphanLevel := f.level(t, "Orphan", 4000, 1, missingRevenue)

	start := shared.NewDate(2024, time.January, 10)
	good := []*member.Member{
		f.member(t, "Ada", f.monthly, start, true),
		f.member(t, "Grace", f.monthly, start, true),
		f.member(t, "Linus", f.monthly, start, true),
	}
	noAccount := f.member(t, "Ken", f.monthly, start, false)
	legacy := f.member(t, "Dennis", closedLevel, start, true)
	orphan := f.member(t, "Barbara", orphanLevel, start, true)

	report, err := f.service.DoRegularBilling(ctx, shared.NewDate(2024, time.March, 10))
	require.NoError(t, err)

	assert.Equal(t, 6, report.MembersDue)
	assert.Len(t, report.Billed, 3)
	assert.Equal(t, 6, report.EntriesPosted)
	require.Len(t, report.Failures, 3)

	failures := map[uuid.UUID]*billing.BillingError{}
	for _, failure := range report.Failures {
		failures[failure.MemberID] = failure
	}
	assert.ErrorIs(t, failures[noAccount.ID], member.ErrMemberHasNoAccount)
	var invalid *ledger.InvalidEntryError
	assert.ErrorAs(t, failures[legacy.ID], &invalid)
	assert.ErrorIs(t, failures[legacy.ID], account.ErrAccountInactive)
	assert.ErrorAs(t, failures[orphan.ID], &invalid)
	assert.ErrorIs(t, failures[orphan.ID], account.ErrAccountNotFound{})

	for _, m := range good {
		assert.Equal(t, shared.NewDate(2024, time.March, 10), f.reload(t, m).LastBilledDate)
		assert.Equal(t, shared.Amount(-10000), f.balance(t, *m.AccountID))
	}
	assert.Equal(t, start, f.reload(t, noAccount).LastBilledDate)
	assert.Equal(t, start, f.reload(t, legacy).LastBilledDate, "failed member is rolled back as a whole")
	assert.Zero(t, f.balance(t, *legacy.AccountID))
	assert.Equal(t, start, f.reload(t, orphan).LastBilledDate, "a missing revenue account fails only its member")
	assert.Zero(t, f.balance(t, *orphan.AccountID))

	for i := 1; i < len(report.Billed); i++ {
		a, b := report.Billed[i-1].MemberID, report.Billed[i].MemberID
		assert.Negative(t, compareIDs(a, b))
	}
	assert.NoError(t, f.engine.CheckInvariant(ctx))
}

func TestDoRegularBilling_InvalidLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	broken := &member.MembershipLevel{ID: uuid.New(), Name: "Broken", FeeAmount: 0, BillingIntervalMonths: 1, RevenueAccountID: f.income.ID}
	require.NoError(t, f.store.Repositories().Members.CreateLevel(ctx, broken))
	m := f.member(t, "Ada", broken, shared.NewDate(2024, time.January, 10), true)

	report, err := f.service.DoRegularBilling(ctx, shared.NewDate(2024, time.February, 10))
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, m.ID, report.Failures[0].MemberID)
	assert.ErrorIs(t, report.Failures[0], member.ErrInvalidMembershipLevel)
}

type brokenLedger struct{}

func (brokenLedger) CheckInvariant(context.Context) error {
	return &ledger.UnbalancedLedgerError{TotalDebits: 100, TotalCredits: 90}
}

func TestDoRegularBilling_SurfacesUnbalancedLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, "Ada", f.monthly, shared.NewDate(2024, time.January, 10), true)

	svc := NewBillingService(f.store, f.engine, brokenLedger{}, f.clock, f.logger, true)
	report, err := svc.DoRegularBilling(ctx, shared.NewDate(2024, time.February, 10))
	require.NotNil(t, report)

	var unbalanced *ledger.UnbalancedLedgerError
	require.True(t, errors.As(err, &unbalanced))
	assert.Equal(t, 1, report.EntriesPosted)

	unchecked := NewBillingService(f.store, f.engine, brokenLedger{}, f.clock, f.logger, false)
	_, err = unchecked.DoRegularBilling(ctx, shared.NewDate(2024, time.March, 10))
	assert.NoError(t, err)
}

func compareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
