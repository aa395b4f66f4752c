package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/membership-ledger/internal/api_gateway/middleware"
	"github.com/membership-ledger/internal/api_gateway/service"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
)

// respondError maps domain errors to status codes. Anything unknown is a 500 and is logged.
func respondError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	var (
		invalidEntry *ledger.InvalidEntryError
		levelMissing member.ErrLevelNotFound
		duplicate    member.ErrDuplicateCustomer
	)

	switch {
	case errors.Is(err, account.ErrAccountNotFound{}):
		RespondNotFound(c, "Account not found")
	case errors.Is(err, ledger.ErrEntryNotFound{}):
		RespondNotFound(c, "Entry not found")
	case errors.Is(err, member.ErrMemberNotFound{}):
		RespondNotFound(c, "Member not found")
	case errors.As(err, &levelMissing):
		RespondUnprocessable(c, "Membership level not found")
	case errors.As(err, &invalidEntry):
		RespondUnprocessable(c, invalidEntry.Error())
	case errors.As(err, &duplicate):
		RespondConflict(c, "Customer is already linked to another member")
	case errors.Is(err, account.ErrEmptyName),
		errors.Is(err, account.ErrInvalidAccountType),
		errors.Is(err, member.ErrEmptyName),
		errors.Is(err, member.ErrInvalidMembershipLevel),
		errors.Is(err, service.ErrRevenueAccountType),
		errors.Is(err, service.ErrEmptyCustomerID),
		errors.Is(err, shared.ErrInvalidAmountFormat),
		errors.Is(err, shared.ErrAmountPrecision),
		errors.Is(err, shared.ErrAmountOverflow):
		RespondUnprocessable(c, err.Error())
	default:
		logger.Error(msg, "error", err, "correlation_id", middleware.GetCorrelationID(c))
		RespondInternalError(c)
	}
}
