package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/outbox"
	"github.com/membership-ledger/internal/domain/shared"
)

// OutboxRepository implements outbox.Repository in memory
type OutboxRepository struct {
	binding
}

func (r *OutboxRepository) Create(_ context.Context, message *outbox.Message) error {
	return r.write(func(st *state) error {
		st.nextOutboxID++
		message.ID = st.nextOutboxID
		st.outbox = append(st.outbox, *message)
		return nil
	})
}

func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	var out []*outbox.Message
	err := r.read(func(st *state) error {
		for _, m := range st.outbox {
			if m.Status != shared.OutboxStatusPending {
				continue
			}
			m := m
			out = append(out, &m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	return r.mutate(id, func(m *outbox.Message) {
		m.Status = status
	})
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.mutate(id, func(m *outbox.Message) {
		m.Attempts++
	})
}

func (r *OutboxRepository) GetByEntryID(_ context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	var out *outbox.Message
	err := r.read(func(st *state) error {
		for _, m := range st.outbox {
			if m.EntryID == entryID {
				m := m
				out = &m
				return nil
			}
		}
		return outbox.ErrMessageNotFound{}
	})
	return out, err
}

func (r *OutboxRepository) mutate(id int64, fn func(m *outbox.Message)) error {
	return r.write(func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				fn(&st.outbox[i])
				now := time.Now().UTC()
				st.outbox[i].LastAttemptAt = &now
				return nil
			}
		}
		return outbox.ErrMessageNotFound{ID: id}
	})
}
