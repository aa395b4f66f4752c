package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewReport(asOf, time.Now())

	r.AddResult(MemberResult{MemberID: uuid.New(), EntryIDs: []uuid.UUID{uuid.New(), uuid.New()}})
	r.AddResult(MemberResult{MemberID: uuid.New()})
	assert.Len(t, r.Billed, 1, "members without entries are not listed")
	assert.Equal(t, 2, r.EntriesPosted)
	assert.False(t, r.HasFailures())

	cause := errors.New("revenue account missing")
	failed := uuid.New()
	r.AddFailure(failed, cause)
	assert.True(t, r.HasFailures())

	var billingErr *BillingError
	assert.True(t, errors.As(r.Failures[0], &billingErr))
	assert.Equal(t, failed, billingErr.MemberID)
	assert.ErrorIs(t, billingErr, cause)
	assert.Contains(t, billingErr.Error(), failed.String())
}
