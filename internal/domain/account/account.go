package account

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyName          = errors.New("account name cannot be empty")
	ErrInvalidAccountType = errors.New("account type must be one of ASSET, LIABILITY, EQUITY, INCOME, EXPENSE")
	ErrAccountInactive    = errors.New("account is inactive")
)

// Type is the closed set of ledger account classifications
type Type string

const (
	TypeAsset     Type = "ASSET"
	TypeLiability Type = "LIABILITY"
	TypeEquity    Type = "EQUITY"
	TypeIncome    Type = "INCOME"
	TypeExpense   Type = "EXPENSE"
)

// Types lists every account type in a stable order.
var Types = []Type{TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense}

// ParseType accepts an account type name in any letter case.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidAccountType
	}
	return t, nil
}

func (t Type) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which balances of this type are positive.
// Asset and expense accounts are debit-normal, everything else is credit-normal.
func (t Type) NormalSide() shared.Side {
	switch t {
	case TypeAsset, TypeExpense:
		return shared.SideDebit
	default:
		return shared.SideCredit
	}
}

// LedgerAccount is a chart-of-accounts entry. Its balance is never stored.
type LedgerAccount struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      Type      `json:"account_type"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLedgerAccount validates and creates an active account
func NewLedgerAccount(name string, accountType Type, now time.Time) (*LedgerAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if !accountType.Valid() {
		return nil, ErrInvalidAccountType
	}

	return &LedgerAccount{
		ID:        uuid.New(),
		Name:      name,
		Type:      accountType,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (a *LedgerAccount) NormalSide() shared.Side {
	return a.Type.NormalSide()
}

// Rename is the only mutation allowed on an account's identity
func (a *LedgerAccount) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	a.Name = name
	a.UpdatedAt = now
	return nil
}

// Deactivate marks the account as closed for new postings. History is kept.
func (a *LedgerAccount) Deactivate(now time.Time) {
	a.Active = false
	a.UpdatedAt = now
}
