package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/shared"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
	"github.com/membership-ledger/internal/platform/clock"
)

// maxListEntries caps one entries listing
const maxListEntries = 1000

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
	ledger      ledgerservice.LedgerService
	clock       clock.Clock
}

func NewAccountService(accountRepo account.Repository, ledger ledgerservice.LedgerService, clk clock.Clock) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		ledger:      ledger,
		clock:       clk,
	}
}

func (s *AccountServiceImpl) CreateAccount(ctx context.Context, name string, accountType account.Type) (*account.LedgerAccount, error) {
	acc, err := account.NewLedgerAccount(name, accountType, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.LedgerAccount, error) {
	return s.accountRepo.GetByID(ctx, id)
}

func (s *AccountServiceImpl) RenameAccount(ctx context.Context, id uuid.UUID, name string) (*account.LedgerAccount, error) {
	acc, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := acc.Rename(name, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.accountRepo.Update(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *AccountServiceImpl) DeactivateAccount(ctx context.Context, id uuid.UUID) (*account.LedgerAccount, error) {
	acc, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return acc, nil
	}
	acc.Deactivate(s.clock.Now())
	if err := s.accountRepo.Update(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *AccountServiceImpl) GetBalance(ctx context.Context, id uuid.UUID, asOf *time.Time) (shared.Amount, error) {
	return s.ledger.Balance(ctx, id, asOf)
}

func (s *AccountServiceImpl) ListEntries(ctx context.Context, id uuid.UUID, role ledger.Role, limit int) ([]*ledger.Entry, error) {
	if limit <= 0 || limit > maxListEntries {
		limit = maxListEntries
	}

	entries := make([]*ledger.Entry, 0)
	for e, err := range s.ledger.EntriesFor(ctx, id, role) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		if len(entries) == limit {
			break
		}
	}
	return entries, nil
}
