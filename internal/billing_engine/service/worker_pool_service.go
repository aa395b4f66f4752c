package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/billing"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/platform/clock"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolBillingService bills members in parallel. Each member is still one transaction.
type WorkerPoolBillingService struct {
	biller MemberBiller
	pool   *ants.Pool
	clock  clock.Clock
	logger *slog.Logger
}

var _ BillingService = (*WorkerPoolBillingService)(nil)

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolBillingService(
	biller MemberBiller,
	config WorkerPoolConfig,
	clk clock.Clock,
	logger *slog.Logger,
) (*WorkerPoolBillingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolBillingService{
		biller: biller,
		pool:   pool,
		clock:  clk,
		logger: logger,
	}, nil
}

// DoRegularBilling has the same contract as the sequential service; the report is sorted by member id.
func (s *WorkerPoolBillingService) DoRegularBilling(ctx context.Context, asOf time.Time) (*billing.Report, error) {
	asOf = shared.DateOf(asOf)
	report := billing.NewReport(asOf, s.clock.Now())

	due, err := s.biller.DueMembers(ctx, asOf)
	if err != nil {
		return nil, err
	}
	report.MembersDue = len(due)
	s.logger.Info("Submitting billing run to worker pool", "as_of", shared.FormatDate(asOf), "members_due", len(due), "pool_size", s.pool.Cap())

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(memberID uuid.UUID, res billing.MemberResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.AddFailure(memberID, err)
			return
		}
		report.AddResult(res)
	}

	for _, memberID := range due {
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			res, err := s.biller.BillMember(ctx, memberID, asOf)
			record(memberID, res, err)
		})
		if submitErr != nil {
			wg.Done()
			s.logger.Error("Failed to submit member to worker pool", "member_id", memberID.String(), "error", submitErr)
			record(memberID, billing.MemberResult{}, submitErr)
		}
	}
	wg.Wait()

	return report, s.biller.FinishRun(ctx, report)
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolBillingService) Shutdown() {
	s.logger.Info("Shutting down billing worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolBillingService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolBillingService) Capacity() int {
	return s.pool.Cap()
}
