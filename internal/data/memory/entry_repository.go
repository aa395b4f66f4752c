package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/shared"
)

// EntryRepository implements ledger.Repository in memory
type EntryRepository struct {
	binding
}

func (r *EntryRepository) Create(_ context.Context, entry *ledger.Entry) error {
	return r.write(func(st *state) error {
		if entry.ExternalReference != "" {
			if _, taken := st.entryByRef[entry.ExternalReference]; taken {
				return ledger.ErrDuplicateReference{Reference: entry.ExternalReference}
			}
		}
		st.entries = append(st.entries, *entry)
		idx := len(st.entries) - 1
		st.entryByID[entry.ID] = idx
		if entry.ExternalReference != "" {
			st.entryByRef[entry.ExternalReference] = idx
		}
		return nil
	})
}

func (r *EntryRepository) GetByID(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	var out *ledger.Entry
	err := r.read(func(st *state) error {
		idx, ok := st.entryByID[id]
		if !ok {
			return ledger.ErrEntryNotFound{EntryID: id}
		}
		e := st.entries[idx]
		out = &e
		return nil
	})
	return out, err
}

func (r *EntryRepository) GetByExternalReference(_ context.Context, reference string) (*ledger.Entry, error) {
	var out *ledger.Entry
	err := r.read(func(st *state) error {
		if idx, ok := st.entryByRef[reference]; ok {
			e := st.entries[idx]
			out = &e
		}
		return nil
	})
	return out, err
}

func (r *EntryRepository) ListByAccount(_ context.Context, accountID uuid.UUID, role ledger.Role, after *ledger.Cursor, limit int) ([]*ledger.Entry, error) {
	var matched []*ledger.Entry
	err := r.read(func(st *state) error {
		for i := range st.entries {
			e := st.entries[i]
			if !e.Matches(accountID, role) {
				continue
			}
			if after != nil && ledger.CursorOf(&e).Compare(*after) <= 0 {
				continue
			}
			matched = append(matched, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matched, func(a, b *ledger.Entry) int {
		return ledger.CursorOf(a).Compare(ledger.CursorOf(b))
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *EntryRepository) SumsForAccount(_ context.Context, accountID uuid.UUID, asOf *time.Time) (ledger.Sums, error) {
	var sums ledger.Sums
	err := r.read(func(st *state) error {
		sums = ledger.SumEntries(accountID, func(yield func(*ledger.Entry) bool) {
			for i := range st.entries {
				if !yield(&st.entries[i]) {
					return
				}
			}
		}, asOf)
		return nil
	})
	return sums, err
}

// Totals joins entries to accounts like the SQL implementation, so dangling references show up as imbalance
func (r *EntryRepository) Totals(_ context.Context) (*ledger.Totals, error) {
	totals := &ledger.Totals{}
	err := r.read(func(st *state) error {
		byType := make(map[account.Type]*ledger.TypeTotals)
		for _, t := range account.Types {
			byType[t] = &ledger.TypeTotals{Type: t}
		}
		for i := range st.entries {
			e := &st.entries[i]
			totals.EntryTotal += e.Amount
			totals.EntryCount++
			if acc, ok := st.accounts[e.DebitAccountID]; ok {
				byType[acc.Type].Debits += e.Amount
			}
			if acc, ok := st.accounts[e.CreditAccountID]; ok {
				byType[acc.Type].Credits += e.Amount
			}
		}
		for _, t := range account.Types {
			tt := byType[t]
			if tt.Debits != shared.Amount(0) || tt.Credits != shared.Amount(0) {
				totals.ByType = append(totals.ByType, *tt)
			}
		}
		return nil
	})
	return totals, err
}
