// Package billing holds the result types of a recurring billing run.
package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BillingError is one member's failed billing cycle. It never aborts the batch.
type BillingError struct {
	MemberID uuid.UUID
	Cause    error
}

func (e *BillingError) Error() string {
	return fmt.Sprintf("billing member %s failed: %v", e.MemberID, e.Cause)
}

func (e *BillingError) Unwrap() error {
	return e.Cause
}

// MemberResult is the outcome of billing one member
type MemberResult struct {
	MemberID       uuid.UUID   `json:"member_id"`
	EntryIDs       []uuid.UUID `json:"entry_ids"`
	LastBilledDate time.Time   `json:"last_billed_date"`
}

// Report summarises a billing run
type Report struct {
	AsOf          time.Time       `json:"as_of"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	MembersDue    int             `json:"members_due"`
	Billed        []MemberResult  `json:"billed"`
	Failures      []*BillingError `json:"-"`
	EntriesPosted int             `json:"entries_posted"`
}

func NewReport(asOf, startedAt time.Time) *Report {
	return &Report{AsOf: asOf, StartedAt: startedAt}
}

// AddResult records a member billed with at least one entry.
func (r *Report) AddResult(res MemberResult) {
	if len(res.EntryIDs) == 0 {
		return
	}
	r.Billed = append(r.Billed, res)
	r.EntriesPosted += len(res.EntryIDs)
}

func (r *Report) AddFailure(memberID uuid.UUID, cause error) {
	r.Failures = append(r.Failures, &BillingError{MemberID: memberID, Cause: cause})
}

func (r *Report) HasFailures() bool {
	return len(r.Failures) > 0
}
