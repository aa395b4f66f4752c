package components

import (
	"log/slog"

	"github.com/membership-ledger/internal/billing_engine/service"
	"github.com/membership-ledger/internal/config"
	"github.com/membership-ledger/internal/domain/store"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
	"github.com/membership-ledger/internal/platform/clock"
)

// CreateBillingService wires the sequential billing service behind a worker pool.
// If the pool cannot be created the sequential service is returned.
func CreateBillingService(
	st store.Store,
	engine *ledgerservice.Engine,
	clk clock.Clock,
	logger *slog.Logger,
	cfg *config.Config,
) service.BillingService {
	baseService := service.NewBillingService(
		st,
		engine,
		engine,
		clk,
		logger.With("component", "billing_engine"),
		cfg.Ledger.InvariantCheck,
	)

	workerPoolService, err := service.NewWorkerPoolBillingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		clk,
		logger.With("component", "billing_worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create billing worker pool, falling back to sequential billing", "error", err)
		return baseService
	}

	logger.Info("Created worker pool billing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
