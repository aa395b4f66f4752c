package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/membership-ledger/internal/domain/payment"
	"github.com/membership-ledger/internal/payment_gateway/service"
	"github.com/membership-ledger/internal/platform/messaging/producers"
)

// PaymentEventHandler applies processor events read from Kafka
type PaymentEventHandler struct {
	adapter  service.PaymentEventService
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

func NewPaymentEventHandler(
	logger *slog.Logger,
	adapter service.PaymentEventService,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		adapter:  adapter,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage returns nil when the message may be committed.
// Undecodable and rejected events go to the DLQ; transient failures are returned for retry.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event payment.Event
	if err := json.Unmarshal(value, &event); err != nil {
		reason := fmt.Sprintf("Failed to unmarshal payment event from Kafka message: %s", err.Error())
		h.logger.Error("Failed to unmarshal payment event from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		if dlqErr := h.deadLetter(ctx, key, value, reason); dlqErr != nil {
			return fmt.Errorf("failed to unmarshal message value: %w", err)
		}
		return nil
	}

	logger := h.logger.With("event_id", event.EventID, "event_type", string(event.Type))
	logger.Info("Received payment event",
		"charge_id", event.ExternalChargeID,
		"customer_id", event.ExternalCustomerID,
		"amount", event.Amount.String(),
	)

	outcome, err := h.adapter.ApplyEvent(ctx, &event)

	var rejected *payment.PaymentProcessorError
	if errors.As(err, &rejected) {
		// the rejection is already in the event log, a failed DLQ write must not block the partition
		if dlqErr := h.deadLetter(ctx, key, value, rejected.Error()); dlqErr != nil {
			logger.Warn("Rejection recorded, DLQ write failed", "unreconciled", rejected.Unreconciled, "error", dlqErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying payment event %s failed: %w", event.EventID, err)
	}

	if outcome.Duplicate {
		logger.Info("Skipped already handled payment event")
		return nil
	}
	logger.Info("Successfully applied payment event", "entries", len(outcome.EntryIDs))
	return nil
}

func (h *PaymentEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string) error {
	if h.producer == nil {
		return producers.ErrDLQDisabled
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"message_key", string(key),
		)
		return err
	}
	h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
