package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/membership-ledger/internal/api_gateway/service"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/shared"
)

// EntryHandler handles manual postings and reversals
type EntryHandler struct {
	entryService service.EntryService
	logger       *slog.Logger
}

func NewEntryHandler(logger *slog.Logger, entryService service.EntryService) *EntryHandler {
	return &EntryHandler{
		entryService: entryService,
		logger:       logger,
	}
}

func (h *EntryHandler) Create(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := shared.ParseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	debitID, err := uuid.Parse(req.DebitAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid debit_account_id")
		return
	}
	creditID, err := uuid.Parse(req.CreditAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid credit_account_id")
		return
	}
	effective, err := shared.ParseDate(req.EffectiveDate)
	if err != nil {
		RespondBadRequest(c, "Invalid effective_date, expected YYYY-MM-DD")
		return
	}

	entry, err := h.entryService.PostManualEntry(c.Request.Context(), ledger.Posting{
		DebitAccountID:    debitID,
		CreditAccountID:   creditID,
		Amount:            amount,
		EffectiveDate:     effective,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to post entry", err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

func (h *EntryHandler) GetByID(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}

	entry, err := h.entryService.GetEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get entry", err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// Reverse posts the offsetting entry. Repeating the request returns the same reversal.
func (h *EntryHandler) Reverse(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}

	var req ReverseEntryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	var effective time.Time
	if req.EffectiveDate != "" {
		d, err := shared.ParseDate(req.EffectiveDate)
		if err != nil {
			RespondBadRequest(c, "Invalid effective_date, expected YYYY-MM-DD")
			return
		}
		effective = d
	}

	reversal, err := h.entryService.ReverseEntry(c.Request.Context(), id, effective, req.Description)
	if err != nil {
		respondError(c, h.logger, "Failed to reverse entry", err)
		return
	}

	RespondCreated(c, mapEntryToResponse(reversal))
}

func (h *EntryHandler) entryID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid entry ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid entry ID")
		return uuid.Nil, false
	}
	return id, true
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	response := EntryResponse{
		ID:                e.ID.String(),
		DebitAccountID:    e.DebitAccountID.String(),
		CreditAccountID:   e.CreditAccountID.String(),
		Amount:            e.Amount.String(),
		EffectiveDate:     shared.FormatDate(e.EffectiveDate),
		Description:       e.Description,
		IsAutomated:       e.IsAutomated,
		IsRecurring:       e.IsRecurring,
		ExternalReference: e.ExternalReference,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339Nano),
	}
	if e.ReversesEntryID != nil {
		response.ReversesEntryID = e.ReversesEntryID.String()
	}
	return response
}
