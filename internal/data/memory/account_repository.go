package memory

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/account"
)

// AccountRepository implements account.Repository in memory
type AccountRepository struct {
	binding
}

func (r *AccountRepository) Create(_ context.Context, acc *account.LedgerAccount) error {
	return r.write(func(st *state) error {
		st.accounts[acc.ID] = *acc
		return nil
	})
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*account.LedgerAccount, error) {
	var out *account.LedgerAccount
	err := r.read(func(st *state) error {
		acc, ok := st.accounts[id]
		if !ok {
			return account.ErrAccountNotFound{AccountID: id}
		}
		out = &acc
		return nil
	})
	return out, err
}

func (r *AccountRepository) List(_ context.Context) ([]*account.LedgerAccount, error) {
	var out []*account.LedgerAccount
	err := r.read(func(st *state) error {
		for _, acc := range st.accounts {
			acc := acc
			out = append(out, &acc)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *account.LedgerAccount) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out, err
}

func (r *AccountRepository) Update(_ context.Context, acc *account.LedgerAccount) error {
	return r.write(func(st *state) error {
		existing, ok := st.accounts[acc.ID]
		if !ok {
			return account.ErrAccountNotFound{AccountID: acc.ID}
		}
		existing.Name = acc.Name
		existing.Active = acc.Active
		existing.UpdatedAt = acc.UpdatedAt
		st.accounts[acc.ID] = existing
		return nil
	})
}

// LockForUpdate relies on the store's writer lock for serialization
func (r *AccountRepository) LockForUpdate(_ context.Context, ids ...uuid.UUID) (map[uuid.UUID]*account.LedgerAccount, error) {
	out := make(map[uuid.UUID]*account.LedgerAccount, len(ids))
	err := r.read(func(st *state) error {
		for _, id := range ids {
			acc, ok := st.accounts[id]
			if !ok {
				return account.ErrAccountNotFound{AccountID: id}
			}
			out[id] = &acc
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
