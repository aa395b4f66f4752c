package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/membership-ledger/internal/config"
	"github.com/membership-ledger/internal/domain/outbox"
	"github.com/membership-ledger/internal/domain/shared"
)

// Poller drains pending outbox messages in id order
type Poller struct {
	outboxRepo       outbox.Repository
	ledgerPublisher  LedgerPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	ledgerPublisher LedgerPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		ledgerPublisher:  ledgerPublisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if _, _, err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

// Drain publishes until no pending message is left. It fails when a batch publishes nothing,
// leaving the rest for the long running poller. Batch binaries call it once before exiting.
func (p *Poller) Drain(ctx context.Context) error {
	for {
		published, fetched, err := p.processPendingMessages(ctx)
		if err != nil {
			return err
		}
		if fetched == 0 {
			return nil
		}
		if published == 0 {
			return fmt.Errorf("outbox drain stalled: none of %d pending messages were published", fetched)
		}
	}
}

// processPendingMessages returns how many messages it published out of how many it fetched
func (p *Poller) processPendingMessages(ctx context.Context) (published, fetched int, err error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, 0, nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger.With("outbox_id", msg.ID, "entry_id", msg.EntryID.String())

		if err := p.ledgerPublisher.PublishToLedger(ctx, msg); err != nil {
			logger.Error("Failed to publish outbox message", "current_attempts", msg.Attempts, "error", err)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				logger.Error("Failed to increment attempts for outbox message", "error", errInc)
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				logger.Warn("Max retry attempts reached, marking outbox message as FAILED_TO_PUBLISH", "attempts_made", msg.Attempts+1)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
					logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH", "error", errUpdate)
				}
			}
			continue
		}
		published++
	}

	p.logger.Info("Processed outbox batch", "fetched", len(messages), "published", published)
	return published, len(messages), nil
}
