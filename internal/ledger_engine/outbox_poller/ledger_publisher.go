package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/membership-ledger/internal/domain/outbox"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/platform/messaging/producers"
)

// LedgerPublisher publishes one outbox message and marks it processed
type LedgerPublisher interface {
	PublishToLedger(ctx context.Context, message *outbox.Message) error
}

// KafkaLedgerPublisher writes entry posted events to the ledger events topic, keyed by entry id
type KafkaLedgerPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewLedgerPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) LedgerPublisher {
	return &KafkaLedgerPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishToLedger is at-least-once: a crash between publish and status update republishes the event.
func (p *KafkaLedgerPublisher) PublishToLedger(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With("outbox_id", message.ID, "entry_id", message.EntryID.String())

	if _, err := message.Event(); err != nil {
		logger.Error("Outbox payload is not a valid entry posted event", "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			logger.Error("Also failed to mark outbox message as FAILED_TO_PUBLISH", "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	if err := p.producer.Publish(ctx, message.EntryID.String(), message.Payload); err != nil {
		return fmt.Errorf("failed to publish entry %s: %w", message.EntryID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to mark outbox message as PROCESSED", "error", err)
		return fmt.Errorf("entry %s published, but failed to mark outbox %d as PROCESSED: %w", message.EntryID, message.ID, err)
	}

	logger.Debug("Outbox message published and marked as PROCESSED")
	return nil
}
