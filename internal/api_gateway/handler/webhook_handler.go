package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/membership-ledger/internal/api_gateway/service"
	"github.com/membership-ledger/internal/domain/payment"
)

// maxWebhookBody bounds the processor payload read into memory
const maxWebhookBody = 1 << 20

// WebhookHandler receives processor notifications
type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *slog.Logger
}

func NewWebhookHandler(logger *slog.Logger, webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// Receive answers 202 once the event is on the payment events topic. Applying it happens asynchronously.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		RespondBadRequest(c, "Unable to read request body")
		return
	}

	event, err := h.webhookService.AcceptEvent(c.Request.Context(), body, c.GetHeader(service.SignatureHeader))
	if err != nil {
		var rejected *payment.PaymentProcessorError
		switch {
		case errors.Is(err, service.ErrMissingSignature),
			errors.Is(err, service.ErrInvalidSignature),
			errors.Is(err, service.ErrStaleSignature):
			h.logger.Warn("Rejected webhook with bad signature", "error", err, "remote_addr", c.ClientIP())
			RespondUnauthorized(c, err.Error())
		case errors.Is(err, service.ErrInvalidPayload), errors.As(err, &rejected):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to accept payment event", "error", err)
			RespondServiceUnavailable(c, "Event could not be queued, retry later")
		}
		return
	}

	RespondAccepted(c, WebhookAcceptedResponse{EventID: event.EventID, Status: "QUEUED"})
}
