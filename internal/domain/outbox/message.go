package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/shared"
)

// EventTypeEntryPosted is the type tag of ledger event payloads
const EventTypeEntryPosted = "ledger.entry_posted"

// EntryPostedEvent is the payload published for each appended entry
type EntryPostedEvent struct {
	Type     string       `json:"type"`
	Entry    ledger.Entry `json:"entry"`
	PostedAt time.Time    `json:"posted_at"`
}

// Message stores a posted entry until it is published to the ledger events topic
type Message struct {
	ID            int64               `json:"id"`
	EntryID       uuid.UUID           `json:"entry_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(entry *ledger.Entry, now time.Time) (*Message, error) {
	payload, err := json.Marshal(EntryPostedEvent{
		Type:     EventTypeEntryPosted,
		Entry:    *entry,
		PostedAt: now,
	})
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:   entry.ID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: now,
	}, nil
}

// Event decodes the payload
func (m *Message) Event() (*EntryPostedEvent, error) {
	var event EntryPostedEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
