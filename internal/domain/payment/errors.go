package payment

// PaymentProcessorError means an event could not be reconciled or applied.
// Nothing is posted. Retrying ingestion is safe.
type PaymentProcessorError struct {
	EventID string
	Reason  string
	Err     error

	// Unreconciled is set when the event may apply after the customer is linked
	// to a member with a dues account. Other rejections are permanent.
	Unreconciled bool
}

func (e *PaymentProcessorError) Error() string {
	msg := "payment event"
	if e.EventID != "" {
		msg += " " + e.EventID
	}
	msg += " rejected: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PaymentProcessorError) Unwrap() error {
	return e.Err
}
