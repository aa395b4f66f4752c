// Package memory provides an in-process implementation of the ledger store.
// A single writer lock makes every unit of work serializable; transactions
// work on a copy of the state that replaces the committed state on success.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/outbox"
	"github.com/membership-ledger/internal/domain/store"
)

type state struct {
	accounts     map[uuid.UUID]account.LedgerAccount
	entries      []ledger.Entry
	entryByID    map[uuid.UUID]int
	entryByRef   map[string]int
	members      map[uuid.UUID]member.Member
	levels       map[uuid.UUID]member.MembershipLevel
	outbox       []outbox.Message
	nextOutboxID int64
}

func newState() *state {
	return &state{
		accounts:   make(map[uuid.UUID]account.LedgerAccount),
		entryByID:  make(map[uuid.UUID]int),
		entryByRef: make(map[string]int),
		members:    make(map[uuid.UUID]member.Member),
		levels:     make(map[uuid.UUID]member.MembershipLevel),
	}
}

// clone copies the containers. Entries are immutable, so sharing their pointer fields is safe.
func (s *state) clone() *state {
	c := &state{
		accounts:     make(map[uuid.UUID]account.LedgerAccount, len(s.accounts)),
		entries:      append([]ledger.Entry(nil), s.entries...),
		entryByID:    make(map[uuid.UUID]int, len(s.entryByID)),
		entryByRef:   make(map[string]int, len(s.entryByRef)),
		members:      make(map[uuid.UUID]member.Member, len(s.members)),
		levels:       make(map[uuid.UUID]member.MembershipLevel, len(s.levels)),
		outbox:       append([]outbox.Message(nil), s.outbox...),
		nextOutboxID: s.nextOutboxID,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.entryByID {
		c.entryByID[k] = v
	}
	for k, v := range s.entryByRef {
		c.entryByRef[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.levels {
		c.levels[k] = v
	}
	return c
}

// Store is the in-memory store.Store
type Store struct {
	mu sync.RWMutex
	st *state
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Repositories() store.Repositories {
	return s.bind(nil)
}

// WithinTx serializes units of work. fn must only use the repositories it is given.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, s.bind(work)); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) bind(tx *state) store.Repositories {
	base := binding{store: s, tx: tx}
	return store.Repositories{
		Accounts: &AccountRepository{base},
		Entries:  &EntryRepository{base},
		Members:  &MemberRepository{base},
		Outbox:   &OutboxRepository{base},
	}
}

// binding routes calls either to a transaction's working copy or to the committed state
type binding struct {
	store *Store
	tx    *state
}

func (b binding) read(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	return fn(b.store.st)
}

// write mutates in place. Callers validate before changing anything, so a failed write leaves no trace.
func (b binding) write(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return fn(b.store.st)
}
