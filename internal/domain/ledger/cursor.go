package ledger

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Cursor is a keyset position in the (effective_date, created_at, id) ordering
type Cursor struct {
	EffectiveDate time.Time
	CreatedAt     time.Time
	ID            uuid.UUID
}

// CursorOf returns the position of e.
func CursorOf(e *Entry) Cursor {
	return Cursor{EffectiveDate: e.EffectiveDate, CreatedAt: e.CreatedAt, ID: e.ID}
}

// Compare orders two positions: negative if c sorts first, zero if equal.
func (c Cursor) Compare(o Cursor) int {
	if n := c.EffectiveDate.Compare(o.EffectiveDate); n != 0 {
		return n
	}
	if n := c.CreatedAt.Compare(o.CreatedAt); n != 0 {
		return n
	}
	return bytes.Compare(c.ID[:], o.ID[:])
}

// Less is the stable ordering used by entry streams.
func Less(a, b *Entry) bool {
	return CursorOf(a).Compare(CursorOf(b)) < 0
}
