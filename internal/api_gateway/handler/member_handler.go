package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/membership-ledger/internal/api_gateway/service"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/platform/clock"
)

// MemberHandler handles membership levels and members
type MemberHandler struct {
	memberService service.MemberService
	clock         clock.Clock
	logger        *slog.Logger
}

func NewMemberHandler(logger *slog.Logger, memberService service.MemberService, clk clock.Clock) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		clock:         clk,
		logger:        logger,
	}
}

func (h *MemberHandler) CreateLevel(c *gin.Context) {
	var req CreateLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	fee, err := shared.ParseAmount(req.FeeAmount)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	revenueID, err := uuid.Parse(req.RevenueAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid revenue_account_id")
		return
	}

	level, err := h.memberService.CreateLevel(c.Request.Context(), &member.MembershipLevel{
		Name:                  req.Name,
		FeeAmount:             fee,
		BillingIntervalMonths: req.BillingIntervalMonths,
		RevenueAccountID:      revenueID,
		HasKeyfob:             req.HasKeyfob,
		HasRoomKey:            req.HasRoomKey,
		HasVoting:             req.HasVoting,
		HasPowertoolAccess:    req.HasPowertoolAccess,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to create membership level", err)
		return
	}

	RespondCreated(c, LevelResponse{
		ID:                    level.ID.String(),
		Name:                  level.Name,
		FeeAmount:             level.FeeAmount.String(),
		BillingIntervalMonths: level.BillingIntervalMonths,
		RevenueAccountID:      level.RevenueAccountID.String(),
		HasKeyfob:             level.HasKeyfob,
		HasRoomKey:            level.HasRoomKey,
		HasVoting:             level.HasVoting,
		HasPowertoolAccess:    level.HasPowertoolAccess,
	})
}

func (h *MemberHandler) Create(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := service.CreateMemberParams{
		Name:        req.Name,
		Email:       req.Email,
		OpenAccount: req.OpenAccount == nil || *req.OpenAccount,
	}
	if req.MembershipLevelID != "" {
		levelID, err := uuid.Parse(req.MembershipLevelID)
		if err != nil {
			RespondBadRequest(c, "Invalid membership_level_id")
			return
		}
		params.LevelID = &levelID
	}
	if req.JoinedDate != "" {
		joined, err := shared.ParseDate(req.JoinedDate)
		if err != nil {
			RespondBadRequest(c, "Invalid joined_date, expected YYYY-MM-DD")
			return
		}
		params.JoinedDate = joined
	}

	m, err := h.memberService.CreateMember(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, "Failed to create member", err)
		return
	}

	RespondCreated(c, mapMemberToResponse(&service.MemberStatus{Member: m}))
}

// GetByID returns the member with next bill date, standing and privileges as of ?as_of (default today)
func (h *MemberHandler) GetByID(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}

	asOf := h.clock.Now()
	if raw := c.Query("as_of"); raw != "" {
		d, err := shared.ParseDate(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
			return
		}
		asOf = d
	}

	status, err := h.memberService.GetMemberStatus(c.Request.Context(), id, asOf)
	if err != nil {
		respondError(c, h.logger, "Failed to get member", err)
		return
	}

	RespondOK(c, mapMemberToResponse(status))
}

// LinkCustomer stores the processor customer id used to reconcile payments
func (h *MemberHandler) LinkCustomer(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}

	var req LinkCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	m, err := h.memberService.LinkCustomer(c.Request.Context(), id, req.ExternalCustomerID)
	if err != nil {
		respondError(c, h.logger, "Failed to link customer", err)
		return
	}

	RespondOK(c, mapMemberToResponse(&service.MemberStatus{Member: m}))
}

func (h *MemberHandler) memberID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid member ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid member ID")
		return uuid.Nil, false
	}
	return id, true
}

func mapMemberToResponse(status *service.MemberStatus) MemberResponse {
	m := status.Member
	response := MemberResponse{
		ID:                 m.ID.String(),
		Name:               m.Name,
		Email:              m.Email,
		ExternalCustomerID: m.ExternalCustomerID,
		LastBilledDate:     shared.FormatDate(m.LastBilledDate),
		BillingUpToDate:    status.BillingUpToDate,
		Privileges: PrivilegesResponse{
			Keyfob:          status.Privileges.Keyfob,
			RoomKey:         status.Privileges.RoomKey,
			Voting:          status.Privileges.Voting,
			PowertoolAccess: status.Privileges.PowertoolAccess,
		},
	}
	if m.AccountID != nil {
		response.AccountID = m.AccountID.String()
	}
	if m.MembershipLevelID != nil {
		response.MembershipLevelID = m.MembershipLevelID.String()
	}
	if status.NextBillDate != nil {
		response.NextBillDate = shared.FormatDate(*status.NextBillDate)
	}
	if !status.AsOf.IsZero() {
		response.AsOf = shared.FormatDate(status.AsOf)
	}
	return response
}
