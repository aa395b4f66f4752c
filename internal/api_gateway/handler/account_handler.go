package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/membership-ledger/internal/api_gateway/service"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/shared"
)

// AccountHandler handles HTTP requests for the account registry
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountType, err := account.ParseType(req.AccountType)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), req.Name, accountType)
	if err != nil {
		respondError(c, h.logger, "Failed to create account", err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

func (h *AccountHandler) GetByID(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get account", err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Rename changes the account name, the only mutable attribute
func (h *AccountHandler) Rename(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	var req RenameAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.RenameAccount(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, h.logger, "Failed to rename account", err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Deactivate closes the account for new postings. Accounts are never deleted.
func (h *AccountHandler) Deactivate(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	acc, err := h.accountService.DeactivateAccount(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to deactivate account", err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Balance returns the balance, restricted to entries effective on or before ?as_of=YYYY-MM-DD
func (h *AccountHandler) Balance(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		d, err := shared.ParseDate(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
			return
		}
		asOf = &d
	}

	balance, err := h.accountService.GetBalance(c.Request.Context(), id, asOf)
	if err != nil {
		respondError(c, h.logger, "Failed to compute balance", err)
		return
	}

	response := BalanceResponse{AccountID: id.String(), Balance: balance.String()}
	if asOf != nil {
		response.AsOf = shared.FormatDate(*asOf)
	}
	RespondOK(c, response)
}

// Entries lists the account's entries in stream order
func (h *AccountHandler) Entries(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	var params EntryListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	entries, err := h.accountService.ListEntries(c.Request.Context(), id, ledger.Role(params.Role), params.Limit)
	if err != nil {
		respondError(c, h.logger, "Failed to list entries", err)
		return
	}

	response := EntryListResponse{Entries: make([]EntryResponse, 0, len(entries))}
	for _, e := range entries {
		response.Entries = append(response.Entries, mapEntryToResponse(e))
	}
	RespondOK(c, response)
}

func (h *AccountHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return id, true
}

func mapAccountToResponse(acc *account.LedgerAccount) AccountResponse {
	return AccountResponse{
		ID:          acc.ID.String(),
		Name:        acc.Name,
		AccountType: string(acc.Type),
		NormalSide:  string(acc.NormalSide()),
		Active:      acc.Active,
		CreatedAt:   acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   acc.UpdatedAt.Format(time.RFC3339),
	}
}
