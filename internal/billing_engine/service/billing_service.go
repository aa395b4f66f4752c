package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/billing"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/domain/store"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
	"github.com/membership-ledger/internal/platform/clock"
)

// BillingServiceImpl bills due members one after the other
type BillingServiceImpl struct {
	store          store.Store
	poster         ledgerservice.Poster
	checker        InvariantChecker
	clock          clock.Clock
	logger         *slog.Logger
	invariantCheck bool
}

var (
	_ BillingService = (*BillingServiceImpl)(nil)
	_ MemberBiller   = (*BillingServiceImpl)(nil)
)

// NewBillingService builds the sequential service. checker may be nil when invariantCheck is false.
func NewBillingService(
	st store.Store,
	poster ledgerservice.Poster,
	checker InvariantChecker,
	clk clock.Clock,
	logger *slog.Logger,
	invariantCheck bool,
) *BillingServiceImpl {
	return &BillingServiceImpl{
		store:          st,
		poster:         poster,
		checker:        checker,
		clock:          clk,
		logger:         logger,
		invariantCheck: invariantCheck && checker != nil,
	}
}

// DoRegularBilling bills every due member. Per-member failures land in the report;
// the returned error is reserved for store failures and a broken ledger invariant.
func (s *BillingServiceImpl) DoRegularBilling(ctx context.Context, asOf time.Time) (*billing.Report, error) {
	asOf = shared.DateOf(asOf)
	report := billing.NewReport(asOf, s.clock.Now())

	due, err := s.DueMembers(ctx, asOf)
	if err != nil {
		return nil, err
	}
	report.MembersDue = len(due)
	s.logger.Info("Starting billing run", "as_of", shared.FormatDate(asOf), "members_due", len(due))

	for _, memberID := range due {
		res, err := s.BillMember(ctx, memberID, asOf)
		if err != nil {
			report.AddFailure(memberID, err)
			continue
		}
		report.AddResult(res)
	}

	return report, s.FinishRun(ctx, report)
}

func (s *BillingServiceImpl) DueMembers(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	due, err := s.store.Repositories().Members.ListDue(ctx, shared.DateOf(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to list members due for billing: %w", err)
	}
	return due, nil
}

// BillMember rechecks the member under its row lock, so a concurrent run for the same
// as-of date finds nothing left to bill.
func (s *BillingServiceImpl) BillMember(ctx context.Context, memberID uuid.UUID, asOf time.Time) (billing.MemberResult, error) {
	logger := s.logger.With("member_id", memberID.String())
	result := billing.MemberResult{MemberID: memberID}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		result.EntryIDs = nil

		m, err := repos.Members.LockForUpdate(ctx, memberID)
		if err != nil {
			return err
		}
		result.LastBilledDate = m.LastBilledDate
		if m.MembershipLevelID == nil {
			return nil
		}

		level, err := repos.Members.GetLevel(ctx, *m.MembershipLevelID)
		if err != nil {
			return err
		}
		if err := level.Validate(); err != nil {
			return err
		}

		cycles := m.DueCycles(level, asOf)
		if len(cycles) == 0 {
			return nil
		}
		if m.AccountID == nil {
			return member.ErrMemberHasNoAccount
		}

		for _, cycle := range cycles {
			id, err := s.poster.Post(ctx, repos, duesPosting(m, level, cycle))
			if err != nil {
				return fmt.Errorf("failed to post dues for %s: %w", shared.FormatDate(cycle), err)
			}
			result.EntryIDs = append(result.EntryIDs, id)
		}

		last := cycles[len(cycles)-1]
		if err := repos.Members.UpdateLastBilled(ctx, m.ID, last); err != nil {
			return fmt.Errorf("failed to advance last billed date: %w", err)
		}
		result.LastBilledDate = last
		return nil
	})
	if err != nil {
		logger.Warn("Billing member failed, member rolled back", "error", err)
		return billing.MemberResult{}, err
	}

	if len(result.EntryIDs) > 0 {
		logger.Info("Member billed",
			"cycles", len(result.EntryIDs),
			"last_billed_date", shared.FormatDate(result.LastBilledDate),
		)
	}
	return result, nil
}

// DuesReference is the idempotency key of one member's dues for one cycle
func DuesReference(memberID uuid.UUID, cycle time.Time) string {
	return "dues:" + memberID.String() + ":" + shared.FormatDate(cycle)
}

func duesPosting(m *member.Member, level *member.MembershipLevel, cycle time.Time) ledger.Posting {
	return ledger.Posting{
		DebitAccountID:    *m.AccountID,
		CreditAccountID:   level.RevenueAccountID,
		Amount:            level.FeeAmount,
		EffectiveDate:     cycle,
		Description:       fmt.Sprintf("%s membership dues %s", level.Name, shared.FormatDate(cycle)),
		IsAutomated:       true,
		IsRecurring:       true,
		ExternalReference: DuesReference(m.ID, cycle),
	}
}

func (s *BillingServiceImpl) FinishRun(ctx context.Context, report *billing.Report) error {
	byMember := func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }
	slices.SortFunc(report.Billed, func(a, b billing.MemberResult) int { return byMember(a.MemberID, b.MemberID) })
	slices.SortFunc(report.Failures, func(a, b *billing.BillingError) int { return byMember(a.MemberID, b.MemberID) })
	report.FinishedAt = s.clock.Now()

	s.logger.Info("Billing run finished",
		"as_of", shared.FormatDate(report.AsOf),
		"members_due", report.MembersDue,
		"members_billed", len(report.Billed),
		"entries_posted", report.EntriesPosted,
		"failures", len(report.Failures),
	)
	for _, f := range report.Failures {
		s.logger.Error("Member billing failed", "member_id", f.MemberID.String(), "error", f.Cause)
	}

	if !s.invariantCheck {
		return nil
	}
	if err := s.checker.CheckInvariant(ctx); err != nil {
		return fmt.Errorf("ledger invariant check after billing run: %w", err)
	}
	return nil
}
