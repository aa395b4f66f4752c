package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/payment"
	"github.com/membership-ledger/internal/domain/shared"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
	"github.com/membership-ledger/internal/platform/clock"
)

// PaymentEventService applies processor events to the ledger
type PaymentEventService interface {
	ApplyEvent(ctx context.Context, event *payment.Event) (*Outcome, error)
}

// Outcome describes what applying one event changed
type Outcome struct {
	EventID        string
	Duplicate      bool                 // event already applied or permanently rejected, nothing done
	ChargeStatus   payment.ChargeStatus // status asserted by a charge event
	StatusAdvanced bool                 // false when a later status was already stored
	EntryIDs       []uuid.UUID
	MemberID       *uuid.UUID
}

// Adapter turns processor events into ledger postings. Events are keyed by event id in the
// event log and charges by charge id in the ledger, so redelivery and reordering never double-post.
type Adapter struct {
	ledger    ledgerservice.LedgerService
	members   member.Repository
	events    payment.EventLog
	charges   payment.ChargeRepository
	customers payment.CustomerRepository
	settings  Settings
	clock     clock.Clock
	logger    *slog.Logger
}

var _ PaymentEventService = (*Adapter)(nil)

func NewAdapter(
	ledger ledgerservice.LedgerService,
	members member.Repository,
	events payment.EventLog,
	charges payment.ChargeRepository,
	customers payment.CustomerRepository,
	settings Settings,
	clk clock.Clock,
	logger *slog.Logger,
) *Adapter {
	return &Adapter{
		ledger:    ledger,
		members:   members,
		events:    events,
		charges:   charges,
		customers: customers,
		settings:  settings,
		clock:     clk,
		logger:    logger,
	}
}

// ApplyEvent returns a *payment.PaymentProcessorError for events it could not apply. Unless the
// error is Unreconciled the event can never be applied. Any other error is transient and the
// event may be delivered again.
func (a *Adapter) ApplyEvent(ctx context.Context, event *payment.Event) (*Outcome, error) {
	if err := event.Validate(); err != nil {
		a.logger.Warn("Rejected malformed payment event", "event_id", event.EventID, "error", err)
		return nil, err
	}

	logger := a.logger.With("event_id", event.EventID, "event_type", string(event.Type))

	rec, err := a.events.Record(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment event %s: %w", event.EventID, err)
	}
	if rec.Finished() {
		logger.Info("Payment event already handled", "state", string(rec.State), "attempts", rec.Attempts)
		return &Outcome{EventID: event.EventID, Duplicate: true}, nil
	}

	var outcome *Outcome
	switch {
	case event.Type == payment.EventChargeSucceeded:
		outcome, err = a.applyChargeSucceeded(ctx, event)
	case event.Type.IsCharge():
		outcome, err = a.applyChargeStatus(ctx, event)
	default:
		outcome, err = a.applyCustomer(ctx, event)
	}

	var rejected *payment.PaymentProcessorError
	if errors.As(err, &rejected) && rejected.Unreconciled {
		logger.Warn("Payment event unreconciled, a later delivery can apply it", "reason", rejected.Reason, "error", err)
		if markErr := a.events.MarkUnreconciled(ctx, event.EventID, rejected.Error()); markErr != nil {
			logger.Error("Failed to mark payment event unreconciled", "error", markErr)
		}
		return outcome, err
	}
	if errors.As(err, &rejected) {
		logger.Warn("Payment event rejected", "reason", rejected.Reason, "error", err)
		if markErr := a.events.MarkRejected(ctx, event.EventID, rejected.Error()); markErr != nil {
			logger.Error("Failed to mark payment event rejected", "error", markErr)
		}
		return outcome, err
	}
	if err != nil {
		logger.Error("Failed to apply payment event, it will be retried", "error", err)
		return nil, err
	}

	if err := a.events.MarkApplied(ctx, event.EventID); err != nil {
		return nil, fmt.Errorf("payment event %s applied but not marked: %w", event.EventID, err)
	}
	logger.Info("Payment event applied",
		"charge_status", string(outcome.ChargeStatus),
		"status_advanced", outcome.StatusAdvanced,
		"entries", len(outcome.EntryIDs),
	)
	return outcome, nil
}

// applyChargeStatus records created and failed charges. Nothing is posted.
func (a *Adapter) applyChargeStatus(ctx context.Context, event *payment.Event) (*Outcome, error) {
	charge := a.chargeFor(event)
	advanced, err := a.charges.Advance(ctx, charge)
	if err != nil {
		return nil, err
	}
	return &Outcome{EventID: event.EventID, ChargeStatus: charge.Status, StatusAdvanced: advanced}, nil
}

func (a *Adapter) applyChargeSucceeded(ctx context.Context, event *payment.Event) (*Outcome, error) {
	reject := func(reason string, err error) error {
		return &payment.PaymentProcessorError{EventID: event.EventID, Reason: reason, Err: err}
	}
	unreconciled := func(reason string, err error) error {
		return &payment.PaymentProcessorError{EventID: event.EventID, Reason: reason, Err: err, Unreconciled: true}
	}

	if event.ExternalCustomerID == "" {
		return nil, reject("missing external_customer_id for charge.succeeded", nil)
	}
	if !event.Amount.IsPositive() {
		return nil, reject("charge amount must be greater than zero", nil)
	}
	if event.Fee < 0 || event.Fee > event.Amount {
		return nil, reject("processor fee must be between zero and the charge amount", nil)
	}
	if event.Currency != "" && !strings.EqualFold(event.Currency, a.settings.Currency) {
		return nil, reject(fmt.Sprintf("currency %s does not match ledger currency %s", event.Currency, a.settings.Currency), nil)
	}
	method, ok := a.settings.Method(event.PaymentMethod)
	if !ok {
		return nil, reject("unknown payment method "+event.PaymentMethod, nil)
	}
	if event.Fee > 0 && method.ProcessorFeeAccountID == uuid.Nil {
		return nil, reject("processor fee account is not configured for "+method.Name, nil)
	}

	m, err := a.members.GetByExternalCustomerID(ctx, event.ExternalCustomerID)
	if errors.Is(err, member.ErrMemberNotFound{}) {
		return nil, unreconciled("unknown customer "+event.ExternalCustomerID, err)
	}
	if err != nil {
		return nil, err
	}

	credit := uuid.Nil
	switch event.Purpose {
	case payment.PurposeFee:
		if a.settings.FeeIncomeAccountID == uuid.Nil {
			return nil, reject("fee income account is not configured", nil)
		}
		credit = a.settings.FeeIncomeAccountID
	default:
		if m.AccountID == nil {
			return nil, unreconciled("member has no dues account", member.ErrMemberHasNoAccount)
		}
		credit = *m.AccountID
	}

	effective := event.OccurredAt
	if effective.IsZero() {
		effective = a.clock.Now()
	}

	postings := []ledger.Posting{{
		DebitAccountID:    method.ClearingAccountID,
		CreditAccountID:   credit,
		Amount:            event.Amount,
		EffectiveDate:     shared.DateOf(effective),
		Description:       fmt.Sprintf("%s payment %s", method.Name, event.ExternalChargeID),
		IsAutomated:       method.IsAutomated,
		IsRecurring:       method.IsRecurring,
		ExternalReference: payment.ChargeReference(event.ExternalChargeID),
	}}
	if event.Fee > 0 {
		postings = append(postings, ledger.Posting{
			DebitAccountID:    method.ProcessorFeeAccountID,
			CreditAccountID:   method.ClearingAccountID,
			Amount:            event.Fee,
			EffectiveDate:     shared.DateOf(effective),
			Description:       fmt.Sprintf("%s fee %s", method.Name, event.ExternalChargeID),
			IsAutomated:       method.IsAutomated,
			IsRecurring:       method.IsRecurring,
			ExternalReference: payment.ChargeFeeReference(event.ExternalChargeID),
		})
	}

	ids, err := a.ledger.PostEntries(ctx, postings)
	var invalid *ledger.InvalidEntryError
	if errors.As(err, &invalid) {
		return nil, reject("ledger rejected the payment", err)
	}
	if err != nil {
		return nil, err
	}

	charge := a.chargeFor(event)
	charge.MemberID = &m.ID
	charge.EntryIDs = ids
	advanced, err := a.charges.Advance(ctx, charge)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		EventID:        event.EventID,
		ChargeStatus:   charge.Status,
		StatusAdvanced: advanced,
		EntryIDs:       ids,
		MemberID:       &m.ID,
	}, nil
}

// applyCustomer stores the processor's customer, linked to a member when one carries the id.
// An unknown customer is stored unreconciled and reported. It never creates a member.
func (a *Adapter) applyCustomer(ctx context.Context, event *payment.Event) (*Outcome, error) {
	snapshot := &payment.Customer{
		CustomerID:  event.ExternalCustomerID,
		Email:       event.CustomerEmail,
		LastEventID: event.EventID,
		UpdatedAt:   a.clock.Now(),
	}

	m, err := a.members.GetByExternalCustomerID(ctx, event.ExternalCustomerID)
	notFound := errors.Is(err, member.ErrMemberNotFound{})
	if err != nil && !notFound {
		return nil, err
	}
	if !notFound {
		snapshot.MemberID = &m.ID
		snapshot.Reconciled = true
	}

	if err := a.customers.Upsert(ctx, snapshot); err != nil {
		return nil, err
	}

	if notFound {
		return &Outcome{EventID: event.EventID}, &payment.PaymentProcessorError{
			EventID:      event.EventID,
			Reason:       "unreconciled customer " + event.ExternalCustomerID,
			Err:          err,
			Unreconciled: true,
		}
	}
	return &Outcome{EventID: event.EventID, MemberID: &m.ID}, nil
}

func (a *Adapter) chargeFor(event *payment.Event) *payment.Charge {
	return &payment.Charge{
		ChargeID:    event.ExternalChargeID,
		CustomerID:  event.ExternalCustomerID,
		Status:      payment.StatusFor(event.Type),
		Amount:      event.Amount,
		Currency:    strings.ToLower(event.Currency),
		LastEventID: event.EventID,
		UpdatedAt:   a.clock.Now(),
	}
}
