package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/outbox"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/domain/store"
	"github.com/membership-ledger/internal/platform/clock"
)

const defaultPageSize = 500

// Engine appends entries and derives balances. It never updates or deletes an entry.
type Engine struct {
	store    store.Store
	clock    clock.Clock
	logger   *slog.Logger
	pageSize int
}

var (
	_ LedgerService = (*Engine)(nil)
	_ Poster        = (*Engine)(nil)
)

func NewEngine(st store.Store, clk clock.Clock, logger *slog.Logger, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Engine{
		store:    st,
		clock:    clk,
		logger:   logger.With("component", "ledger_engine"),
		pageSize: pageSize,
	}
}

// PostEntry appends one entry and its outbox message atomically.
// A posting whose external reference is already taken returns the existing entry id.
func (e *Engine) PostEntry(ctx context.Context, posting ledger.Posting) (uuid.UUID, error) {
	ids, err := e.PostEntries(ctx, []ledger.Posting{posting})
	if err != nil {
		return uuid.Nil, err
	}
	return ids[0], nil
}

// PostEntries appends several entries in one transaction. Either all of them are written or none.
func (e *Engine) PostEntries(ctx context.Context, postings []ledger.Posting) ([]uuid.UUID, error) {
	if len(postings) == 0 {
		return nil, &ledger.InvalidEntryError{Err: errors.New("no postings given")}
	}
	for _, p := range postings {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	var ids []uuid.UUID
	err := e.withinTxResolvingDuplicates(ctx, func(ctx context.Context, repos store.Repositories) error {
		ids = make([]uuid.UUID, 0, len(postings))
		for _, p := range postings {
			id, err := e.Post(ctx, repos, p)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Post runs inside the caller's unit of work. Both accounts stay locked until it ends.
func (e *Engine) Post(ctx context.Context, repos store.Repositories, posting ledger.Posting) (uuid.UUID, error) {
	if err := posting.Validate(); err != nil {
		return uuid.Nil, err
	}

	if ref := posting.ExternalReference; ref != "" {
		existing, err := repos.Entries.GetByExternalReference(ctx, ref)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to look up external reference %s: %w", ref, err)
		}
		if existing != nil {
			e.logger.Debug("Entry already posted", "external_reference", ref, "entry_id", existing.ID.String())
			return existing.ID, nil
		}
	}

	accounts, err := repos.Accounts.LockForUpdate(ctx, posting.DebitAccountID, posting.CreditAccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return uuid.Nil, &ledger.InvalidEntryError{Err: err}
		}
		return uuid.Nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	// reversals stay possible on closed accounts
	if posting.Reverses() == nil {
		for _, id := range []uuid.UUID{posting.DebitAccountID, posting.CreditAccountID} {
			if !accounts[id].Active {
				return uuid.Nil, &ledger.InvalidEntryError{Err: fmt.Errorf("%w: %s", account.ErrAccountInactive, id)}
			}
		}
	}

	now := e.clock.Now()
	entry, err := ledger.NewEntry(posting, now)
	if err != nil {
		return uuid.Nil, err
	}
	if err := repos.Entries.Create(ctx, entry); err != nil {
		return uuid.Nil, err
	}

	msg, err := outbox.NewMessage(entry, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to build outbox message for entry %s: %w", entry.ID, err)
	}
	if err := repos.Outbox.Create(ctx, msg); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create outbox message for entry %s: %w", entry.ID, err)
	}

	e.logger.Info("Entry posted",
		"entry_id", entry.ID.String(),
		"debit_account_id", entry.DebitAccountID.String(),
		"credit_account_id", entry.CreditAccountID.String(),
		"amount", entry.Amount.String(),
		"effective_date", shared.FormatDate(entry.EffectiveDate),
	)
	return entry.ID, nil
}

// withinTxResolvingDuplicates retries once when a concurrent writer took an external reference
// between the lookup and the insert. The second attempt finds the committed entry.
func (e *Engine) withinTxResolvingDuplicates(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	err := e.store.WithinTx(ctx, fn)
	if errors.Is(err, ledger.ErrDuplicateReference{}) {
		e.logger.Warn("External reference taken concurrently, retrying", "error", err)
		err = e.store.WithinTx(ctx, fn)
	}
	return err
}

// ReverseEntry posts the mirror image of an entry. Repeated calls return the same reversal.
func (e *Engine) ReverseEntry(ctx context.Context, entryID uuid.UUID, effectiveDate time.Time, description string) (uuid.UUID, error) {
	if effectiveDate.IsZero() {
		effectiveDate = shared.DateOf(e.clock.Now())
	}

	var reversalID uuid.UUID
	err := e.withinTxResolvingDuplicates(ctx, func(ctx context.Context, repos store.Repositories) error {
		original, err := repos.Entries.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if description == "" {
			description = "Reversal of " + original.Description
		}
		reversalID, err = e.Post(ctx, repos, original.ReversalPosting(effectiveDate, description))
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return reversalID, nil
}

// Balance is the normal-side total minus the opposite side, up to asOf when given.
func (e *Engine) Balance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (shared.Amount, error) {
	repos := e.store.Repositories()

	acc, err := repos.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	sums, err := repos.Entries.SumsForAccount(ctx, accountID, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to sum entries of account %s: %w", accountID, err)
	}
	return sums.Balance(acc.NormalSide()), nil
}

// EntriesFor streams the account's entries in (effective_date, created_at, id) order.
// Each range starts from the beginning and fetches one page at a time.
func (e *Engine) EntriesFor(ctx context.Context, accountID uuid.UUID, role ledger.Role) iter.Seq2[*ledger.Entry, error] {
	return func(yield func(*ledger.Entry, error) bool) {
		if !role.Valid() {
			yield(nil, &ledger.InvalidEntryError{Err: ledger.ErrInvalidRole})
			return
		}

		repos := e.store.Repositories()
		if _, err := repos.Accounts.GetByID(ctx, accountID); err != nil {
			yield(nil, err)
			return
		}

		var after *ledger.Cursor
		for {
			page, err := repos.Entries.ListByAccount(ctx, accountID, role, after, e.pageSize)
			if err != nil {
				yield(nil, fmt.Errorf("failed to list entries of account %s: %w", accountID, err))
				return
			}
			for _, entry := range page {
				if !yield(entry, nil) {
					return
				}
			}
			if len(page) < e.pageSize {
				return
			}
			cursor := ledger.CursorOf(page[len(page)-1])
			after = &cursor
		}
	}
}

// CheckInvariant returns UnbalancedLedgerError when debits and credits disagree.
func (e *Engine) CheckInvariant(ctx context.Context) error {
	totals, err := e.store.Repositories().Entries.Totals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger totals: %w", err)
	}
	if err := totals.Check(); err != nil {
		e.logger.Error("Ledger invariant violated", "error", err, "entry_count", totals.EntryCount)
		return err
	}
	return nil
}
