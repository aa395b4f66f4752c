package memory

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
)

// MemberRepository implements member.Repository in memory
type MemberRepository struct {
	binding
}

func (r *MemberRepository) Create(_ context.Context, m *member.Member) error {
	return r.write(func(st *state) error {
		if m.ExternalCustomerID != "" && customerTaken(st, m.ExternalCustomerID, m.ID) {
			return member.ErrDuplicateCustomer{CustomerID: m.ExternalCustomerID}
		}
		st.members[m.ID] = *m
		return nil
	})
}

func (r *MemberRepository) GetByID(_ context.Context, id uuid.UUID) (*member.Member, error) {
	var out *member.Member
	err := r.read(func(st *state) error {
		m, ok := st.members[id]
		if !ok {
			return member.ErrMemberNotFound{MemberID: id}
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *MemberRepository) GetByExternalCustomerID(_ context.Context, customerID string) (*member.Member, error) {
	var out *member.Member
	err := r.read(func(st *state) error {
		for _, m := range st.members {
			if m.ExternalCustomerID == customerID {
				m := m
				out = &m
				return nil
			}
		}
		return member.ErrMemberNotFound{CustomerID: customerID}
	})
	return out, err
}

func (r *MemberRepository) ListDue(_ context.Context, asOf time.Time) ([]uuid.UUID, error) {
	var due []uuid.UUID
	cutoff := shared.DateOf(asOf)
	err := r.read(func(st *state) error {
		for _, m := range st.members {
			if m.MembershipLevelID == nil {
				continue
			}
			level, ok := st.levels[*m.MembershipLevelID]
			if !ok {
				continue
			}
			if next, ok := m.NextBillDate(&level); ok && !next.After(cutoff) {
				due = append(due, m.ID)
			}
		}
		return nil
	})
	slices.SortFunc(due, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return due, err
}

func (r *MemberRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	return r.GetByID(ctx, id)
}

func (r *MemberRepository) UpdateLastBilled(_ context.Context, id uuid.UUID, lastBilled time.Time) error {
	return r.write(func(st *state) error {
		m, ok := st.members[id]
		if !ok {
			return member.ErrMemberNotFound{MemberID: id}
		}
		if err := m.AdvanceLastBilled(lastBilled, time.Now().UTC()); err != nil {
			return err
		}
		st.members[id] = m
		return nil
	})
}

func (r *MemberRepository) SetExternalCustomerID(_ context.Context, id uuid.UUID, customerID string) error {
	return r.write(func(st *state) error {
		m, ok := st.members[id]
		if !ok {
			return member.ErrMemberNotFound{MemberID: id}
		}
		if customerTaken(st, customerID, id) {
			return member.ErrDuplicateCustomer{CustomerID: customerID}
		}
		m.ExternalCustomerID = customerID
		m.UpdatedAt = time.Now().UTC()
		st.members[id] = m
		return nil
	})
}

func (r *MemberRepository) CreateLevel(_ context.Context, level *member.MembershipLevel) error {
	return r.write(func(st *state) error {
		st.levels[level.ID] = *level
		return nil
	})
}

func (r *MemberRepository) GetLevel(_ context.Context, id uuid.UUID) (*member.MembershipLevel, error) {
	var out *member.MembershipLevel
	err := r.read(func(st *state) error {
		level, ok := st.levels[id]
		if !ok {
			return member.ErrLevelNotFound{LevelID: id}
		}
		out = &level
		return nil
	})
	return out, err
}

func customerTaken(st *state, customerID string, except uuid.UUID) bool {
	for id, m := range st.members {
		if id != except && m.ExternalCustomerID == customerID {
			return true
		}
	}
	return false
}
