package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/domain/store"
	"github.com/membership-ledger/internal/platform/clock"
)

var (
	ErrRevenueAccountType = errors.New("revenue account must be an INCOME account")
	ErrEmptyCustomerID    = errors.New("external customer id cannot be empty")
)

// CreateMemberParams describes a new member. A dues account is opened when OpenAccount is set.
type CreateMemberParams struct {
	Name        string
	Email       string
	LevelID     *uuid.UUID
	JoinedDate  time.Time
	OpenAccount bool
}

// MemberStatus is a member with its derived billing standing
type MemberStatus struct {
	Member          *member.Member
	Level           *member.MembershipLevel
	NextBillDate    *time.Time
	BillingUpToDate bool
	Privileges      member.Privileges
	AsOf            time.Time
}

// MemberServiceImpl implements the MemberService interface
type MemberServiceImpl struct {
	store store.Store
	clock clock.Clock
}

func NewMemberService(st store.Store, clk clock.Clock) MemberService {
	return &MemberServiceImpl{
		store: st,
		clock: clk,
	}
}

func (s *MemberServiceImpl) CreateLevel(ctx context.Context, level *member.MembershipLevel) (*member.MembershipLevel, error) {
	if err := level.Validate(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	revenue, err := repos.Accounts.GetByID(ctx, level.RevenueAccountID)
	if err != nil {
		return nil, err
	}
	if revenue.Type != account.TypeIncome {
		return nil, ErrRevenueAccountType
	}

	level.ID = uuid.New()
	level.Name = strings.TrimSpace(level.Name)
	level.CreatedAt = s.clock.Now()
	if err := repos.Members.CreateLevel(ctx, level); err != nil {
		return nil, err
	}
	return level, nil
}

// CreateMember opens the dues account and the member in one transaction
func (s *MemberServiceImpl) CreateMember(ctx context.Context, params CreateMemberParams) (*member.Member, error) {
	now := s.clock.Now()
	joined := params.JoinedDate
	if joined.IsZero() {
		joined = shared.DateOf(now)
	}

	var created *member.Member
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if params.LevelID != nil {
			if _, err := repos.Members.GetLevel(ctx, *params.LevelID); err != nil {
				return err
			}
		}

		var accountID *uuid.UUID
		if params.OpenAccount {
			acc, err := account.NewLedgerAccount("Member dues: "+strings.TrimSpace(params.Name), account.TypeLiability, now)
			if err != nil {
				return err
			}
			if err := repos.Accounts.Create(ctx, acc); err != nil {
				return fmt.Errorf("failed to open dues account: %w", err)
			}
			accountID = &acc.ID
		}

		m, err := member.NewMember(params.Name, params.Email, accountID, params.LevelID, joined, now)
		if err != nil {
			return err
		}
		if err := repos.Members.Create(ctx, m); err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *MemberServiceImpl) GetMemberStatus(ctx context.Context, id uuid.UUID, asOf time.Time) (*MemberStatus, error) {
	repos := s.store.Repositories()
	m, err := repos.Members.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &MemberStatus{Member: m, AsOf: shared.DateOf(asOf)}
	if m.MembershipLevelID == nil {
		return status, nil
	}

	level, err := repos.Members.GetLevel(ctx, *m.MembershipLevelID)
	if err != nil {
		return nil, err
	}
	status.Level = level
	if next, ok := m.NextBillDate(level); ok {
		status.NextBillDate = &next
	}
	status.BillingUpToDate = m.BillingUpToDate(level, asOf)
	status.Privileges = m.Privileges(level, asOf)
	return status, nil
}

func (s *MemberServiceImpl) LinkCustomer(ctx context.Context, id uuid.UUID, customerID string) (*member.Member, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, ErrEmptyCustomerID
	}

	members := s.store.Repositories().Members
	if err := members.SetExternalCustomerID(ctx, id, customerID); err != nil {
		return nil, err
	}
	return members.GetByID(ctx, id)
}
