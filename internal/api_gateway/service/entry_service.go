package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/ledger"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
)

// EntryServiceImpl implements the EntryService interface
type EntryServiceImpl struct {
	ledger  ledgerservice.LedgerService
	entries ledger.Repository
}

func NewEntryService(ledger ledgerservice.LedgerService, entries ledger.Repository) EntryService {
	return &EntryServiceImpl{
		ledger:  ledger,
		entries: entries,
	}
}

// PostManualEntry forces the automation flags off: entries entered by hand are never automated or recurring
func (s *EntryServiceImpl) PostManualEntry(ctx context.Context, posting ledger.Posting) (*ledger.Entry, error) {
	posting.IsAutomated = false
	posting.IsRecurring = false

	id, err := s.ledger.PostEntry(ctx, posting)
	if err != nil {
		return nil, err
	}
	return s.entries.GetByID(ctx, id)
}

func (s *EntryServiceImpl) ReverseEntry(ctx context.Context, entryID uuid.UUID, effectiveDate time.Time, description string) (*ledger.Entry, error) {
	id, err := s.ledger.ReverseEntry(ctx, entryID, effectiveDate, description)
	if err != nil {
		return nil, err
	}
	return s.entries.GetByID(ctx, id)
}

func (s *EntryServiceImpl) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return s.entries.GetByID(ctx, id)
}
