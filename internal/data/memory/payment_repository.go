package memory

import (
	"context"
	"sync"
	"time"

	"github.com/membership-ledger/internal/domain/payment"
)

// PaymentStore keeps the processor event log, charges and customers in memory
type PaymentStore struct {
	mu        sync.Mutex
	events    map[string]payment.EventRecord
	charges   map[string]payment.Charge
	customers map[string]payment.Customer
}

var (
	_ payment.EventLog           = (*PaymentStore)(nil)
	_ payment.ChargeRepository   = (*PaymentStore)(nil)
	_ payment.CustomerRepository = (*customerView)(nil)
)

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{
		events:    make(map[string]payment.EventRecord),
		charges:   make(map[string]payment.Charge),
		customers: make(map[string]payment.Customer),
	}
}

func (s *PaymentStore) Record(_ context.Context, event *payment.Event) (*payment.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec, ok := s.events[event.EventID]
	if !ok {
		rec = payment.EventRecord{Event: *event, State: payment.EventStateReceived, ReceivedAt: now}
	}
	rec.Attempts++
	rec.UpdatedAt = now
	s.events[event.EventID] = rec
	return &rec, nil
}

func (s *PaymentStore) MarkApplied(_ context.Context, eventID string) error {
	return s.setState(eventID, payment.EventStateApplied, "")
}

func (s *PaymentStore) MarkRejected(_ context.Context, eventID string, reason string) error {
	return s.setState(eventID, payment.EventStateRejected, reason)
}

func (s *PaymentStore) MarkUnreconciled(_ context.Context, eventID string, reason string) error {
	return s.setState(eventID, payment.EventStateUnreconciled, reason)
}

func (s *PaymentStore) setState(eventID string, state payment.EventState, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.events[eventID]
	if !ok {
		return nil
	}
	rec.State = state
	rec.Reason = reason
	rec.UpdatedAt = time.Now().UTC()
	s.events[eventID] = rec
	return nil
}

// EventState returns the recorded state of an event, for assertions
func (s *PaymentStore) EventState(eventID string) (payment.EventState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.events[eventID]
	return rec.State, ok
}

func (s *PaymentStore) Get(_ context.Context, chargeID string) (*payment.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[chargeID]
	if !ok {
		return nil, payment.ErrChargeNotFound{ChargeID: chargeID}
	}
	return &c, nil
}

func (s *PaymentStore) Advance(_ context.Context, charge *payment.Charge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.charges[charge.ChargeID]; ok && !existing.CanAdvanceTo(charge.Status) {
		return false, nil
	}
	c := *charge
	c.StatusRank = c.Status.Rank()
	s.charges[charge.ChargeID] = c
	return true, nil
}

// Customers exposes the customer snapshots as a payment.CustomerRepository
func (s *PaymentStore) Customers() payment.CustomerRepository {
	return &customerView{s}
}

type customerView struct {
	s *PaymentStore
}

func (v *customerView) Upsert(_ context.Context, customer *payment.Customer) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.customers[customer.CustomerID] = *customer
	return nil
}

func (v *customerView) Get(_ context.Context, customerID string) (*payment.Customer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.customers[customerID]
	if !ok {
		return nil, payment.ErrCustomerNotFound{CustomerID: customerID}
	}
	return &c, nil
}
