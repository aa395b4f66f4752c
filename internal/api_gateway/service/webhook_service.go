package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/membership-ledger/internal/domain/payment"
	"github.com/membership-ledger/internal/platform/clock"
	"github.com/membership-ledger/internal/platform/messaging/producers"
)

// SignatureHeader carries the processor's signature of a webhook payload
const SignatureHeader = "Processor-Signature"

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("webhook signature does not match payload")
	ErrStaleSignature   = errors.New("webhook timestamp outside tolerance")
	ErrInvalidPayload   = errors.New("webhook payload is not a payment event")
)

// WebhookServiceImpl verifies processor notifications and hands them to Kafka
type WebhookServiceImpl struct {
	producer  producers.MessagePublisher
	secret    []byte
	tolerance time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

func NewWebhookService(producer producers.MessagePublisher, secret string, tolerance time.Duration, clk clock.Clock, logger *slog.Logger) WebhookService {
	return &WebhookServiceImpl{
		producer:  producer,
		secret:    []byte(secret),
		tolerance: tolerance,
		clock:     clk,
		logger:    logger,
	}
}

// AcceptEvent returns once the event is durably enqueued. The raw payload is published unchanged.
func (s *WebhookServiceImpl) AcceptEvent(ctx context.Context, payload []byte, signature string) (*payment.Event, error) {
	if err := VerifySignature(payload, signature, s.secret, s.tolerance, s.clock.Now()); err != nil {
		return nil, err
	}

	var event payment.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.producer.Publish(ctx, event.EventID, json.RawMessage(payload)); err != nil {
		return nil, fmt.Errorf("failed to enqueue payment event %s: %w", event.EventID, err)
	}

	s.logger.Info("Payment event accepted", "event_id", event.EventID, "event_type", string(event.Type))
	return &event, nil
}

// SignPayload builds a signature header value for payload at ts
func SignPayload(payload []byte, secret []byte, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + hex.EncodeToString(computeSignature(t, payload, secret))
}

// VerifySignature checks a "t=<unix>,v1=<hex>" header. Any of several v1 values may match.
func VerifySignature(payload []byte, header string, secret []byte, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}

	var timestamp string
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			if sig, err := hex.DecodeString(value); err == nil {
				candidates = append(candidates, sig)
			}
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return ErrStaleSignature
		}
	}

	expected := computeSignature(timestamp, payload, secret)
	for _, sig := range candidates {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func computeSignature(timestamp string, payload []byte, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}
