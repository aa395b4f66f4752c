package ledger

import (
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/shared"
)

// Sums holds the debit and credit contributions of one account
type Sums struct {
	Debits  shared.Amount `json:"debits"`
	Credits shared.Amount `json:"credits"`
}

// Balance is the normal-side total minus the opposite-side total.
func (s Sums) Balance(normal shared.Side) shared.Amount {
	if normal == shared.SideDebit {
		return s.Debits - s.Credits
	}
	return s.Credits - s.Debits
}

// Add folds one entry into the sums of accountID.
func (s Sums) Add(accountID uuid.UUID, e *Entry) Sums {
	if e.DebitAccountID == accountID {
		s.Debits += e.Amount
	}
	if e.CreditAccountID == accountID {
		s.Credits += e.Amount
	}
	return s
}

// SumEntries folds an entry stream for accountID, skipping entries effective after asOf.
func SumEntries(accountID uuid.UUID, entries iter.Seq[*Entry], asOf *time.Time) Sums {
	var s Sums
	var cutoff time.Time
	if asOf != nil {
		cutoff = shared.DateOf(*asOf)
	}
	for e := range entries {
		if asOf != nil && e.EffectiveDate.After(cutoff) {
			continue
		}
		s = s.Add(accountID, e)
	}
	return s
}

// TypeTotals are the debit and credit contributions of all accounts of one type
type TypeTotals struct {
	Type    account.Type  `json:"account_type"`
	Debits  shared.Amount `json:"debits"`
	Credits shared.Amount `json:"credits"`
}

// Totals is a whole-ledger snapshot used by the invariant check.
// EntryTotal counts every entry amount once; ByType is joined through the accounts.
type Totals struct {
	EntryTotal shared.Amount
	EntryCount int64
	ByType     []TypeTotals
}

// Check verifies total debits == total credits == sum of entry amounts,
// and Assets + Expenses == Liabilities + Equity + Income on net balances.
func (t *Totals) Check() error {
	var debits, credits, debitNormal, creditNormal shared.Amount
	for _, tt := range t.ByType {
		debits += tt.Debits
		credits += tt.Credits
		sums := Sums{Debits: tt.Debits, Credits: tt.Credits}
		if tt.Type.NormalSide() == shared.SideDebit {
			debitNormal += sums.Balance(shared.SideDebit)
		} else {
			creditNormal += sums.Balance(shared.SideCredit)
		}
	}

	if debits != credits || debits != t.EntryTotal || debitNormal != creditNormal {
		return &UnbalancedLedgerError{
			TotalDebits:  debits,
			TotalCredits: credits,
			EntryTotal:   t.EntryTotal,
		}
	}
	return nil
}
