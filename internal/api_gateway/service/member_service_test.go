package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/data/memory"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/platform/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemberFixture(t *testing.T) (*memory.Store, MemberService, *member.MembershipLevel) {
	t.Helper()
	ctx := context.Background()
	st := memory.NewStore()
	svc := NewMemberService(st, clock.NewFixed(testNow))

	income, err := account.NewLedgerAccount("Membership income", account.TypeIncome, testNow)
	require.NoError(t, err)
	require.NoError(t, st.Repositories().Accounts.Create(ctx, income))

	level, err := svc.CreateLevel(ctx, &member.MembershipLevel{
		Name:                  " Full ",
		FeeAmount:             5000,
		BillingIntervalMonths: 1,
		RevenueAccountID:      income.ID,
		HasKeyfob:             true,
		HasVoting:             true,
	})
	require.NoError(t, err)
	return st, svc, level
}

func TestMemberService_CreateLevel(t *testing.T) {
	ctx := context.Background()
	st, svc, level := newMemberFixture(t)

	assert.Equal(t, "Full", level.Name)
	assert.NotEqual(t, uuid.Nil, level.ID)
	stored, err := st.Repositories().Members.GetLevel(ctx, level.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.Amount(5000), stored.FeeAmount)

	_, err = svc.CreateLevel(ctx, &member.MembershipLevel{Name: "Broken", FeeAmount: 0, BillingIntervalMonths: 1, RevenueAccountID: level.RevenueAccountID})
	assert.ErrorIs(t, err, member.ErrInvalidMembershipLevel)

	cash, err := account.NewLedgerAccount("Cash", account.TypeAsset, testNow)
	require.NoError(t, err)
	require.NoError(t, st.Repositories().Accounts.Create(ctx, cash))
	_, err = svc.CreateLevel(ctx, &member.MembershipLevel{Name: "Odd", FeeAmount: 100, BillingIntervalMonths: 1, RevenueAccountID: cash.ID})
	assert.ErrorIs(t, err, ErrRevenueAccountType)

	_, err = svc.CreateLevel(ctx, &member.MembershipLevel{Name: "Ghost", FeeAmount: 100, BillingIntervalMonths: 1, RevenueAccountID: uuid.New()})
	assert.ErrorIs(t, err, account.ErrAccountNotFound{})
}

func TestMemberService_CreateMemberOpensDuesAccount(t *testing.T) {
	ctx := context.Background()
	st, svc, level := newMemberFixture(t)

	m, err := svc.CreateMember(ctx, CreateMemberParams{
		Name:        "Ada",
		Email:       "ada@example.org",
		LevelID:     &level.ID,
		JoinedDate:  shared.NewDate(2024, time.April, 20),
		OpenAccount: true,
	})
	require.NoError(t, err)
	require.NotNil(t, m.AccountID)
	assert.Equal(t, shared.NewDate(2024, time.April, 20), m.LastBilledDate)

	acc, err := st.Repositories().Accounts.GetByID(ctx, *m.AccountID)
	require.NoError(t, err)
	assert.Equal(t, account.TypeLiability, acc.Type)
	assert.Equal(t, "Member dues: Ada", acc.Name)

	noAccount, err := svc.CreateMember(ctx, CreateMemberParams{Name: "Grace"})
	require.NoError(t, err)
	assert.Nil(t, noAccount.AccountID)
	assert.Equal(t, shared.DateOf(testNow), noAccount.LastBilledDate)
}

func TestMemberService_CreateMemberUnknownLevelRollsBack(t *testing.T) {
	ctx := context.Background()
	st, svc, _ := newMemberFixture(t)
	before, err := st.Repositories().Accounts.List(ctx)
	require.NoError(t, err)

	missing := uuid.New()
	_, err = svc.CreateMember(ctx, CreateMemberParams{Name: "Ada", LevelID: &missing, OpenAccount: true})
	assert.ErrorAs(t, err, &member.ErrLevelNotFound{})

	after, err := st.Repositories().Accounts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestMemberService_GetMemberStatus(t *testing.T) {
	ctx := context.Background()
	_, svc, level := newMemberFixture(t)

	m, err := svc.CreateMember(ctx, CreateMemberParams{
		Name:        "Ada",
		LevelID:     &level.ID,
		JoinedDate:  shared.NewDate(2024, time.January, 31),
		OpenAccount: true,
	})
	require.NoError(t, err)

	status, err := svc.GetMemberStatus(ctx, m.ID, shared.NewDate(2024, time.February, 28))
	require.NoError(t, err)
	require.NotNil(t, status.NextBillDate)
	assert.Equal(t, shared.NewDate(2024, time.February, 29), *status.NextBillDate)
	assert.True(t, status.BillingUpToDate)
	assert.Equal(t, member.Privileges{Keyfob: true, Voting: true}, status.Privileges)

	status, err = svc.GetMemberStatus(ctx, m.ID, shared.NewDate(2024, time.February, 29))
	require.NoError(t, err)
	assert.False(t, status.BillingUpToDate)
	assert.Equal(t, member.Privileges{}, status.Privileges)

	bare, err := svc.CreateMember(ctx, CreateMemberParams{Name: "Grace"})
	require.NoError(t, err)
	status, err = svc.GetMemberStatus(ctx, bare.ID, testNow)
	require.NoError(t, err)
	assert.Nil(t, status.NextBillDate)
	assert.Nil(t, status.Level)
	assert.False(t, status.BillingUpToDate)

	_, err = svc.GetMemberStatus(ctx, uuid.New(), testNow)
	assert.ErrorIs(t, err, member.ErrMemberNotFound{})
}

func TestMemberService_LinkCustomer(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newMemberFixture(t)

	ada, err := svc.CreateMember(ctx, CreateMemberParams{Name: "Ada"})
	require.NoError(t, err)
	grace, err := svc.CreateMember(ctx, CreateMemberParams{Name: "Grace"})
	require.NoError(t, err)

	linked, err := svc.LinkCustomer(ctx, ada.ID, " cus_ada ")
	require.NoError(t, err)
	assert.Equal(t, "cus_ada", linked.ExternalCustomerID)

	_, err = svc.LinkCustomer(ctx, grace.ID, "cus_ada")
	assert.ErrorAs(t, err, &member.ErrDuplicateCustomer{})

	_, err = svc.LinkCustomer(ctx, grace.ID, "")
	assert.ErrorIs(t, err, ErrEmptyCustomerID)
}
