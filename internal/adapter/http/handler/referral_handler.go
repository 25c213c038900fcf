package handler

import (
	"cashback-platform/internal/adapter/http/dto"
	"cashback-platform/internal/adapter/http/middleware"
	"cashback-platform/internal/core/ports"
	"cashback-platform/pkg/apperror"
	"cashback-platform/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReferralHandler handles referral link endpoints.
type ReferralHandler struct {
	referralSvc ports.ReferralService
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(referralSvc ports.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralSvc: referralSvc}
}

// LinkReferral handles POST /api/v1/referrals. The authenticated
// account is the referrer.
func (h *ReferralHandler) LinkReferral(c *gin.Context) {
	referrerID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.LinkReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	referredID, err := uuid.Parse(req.ReferredID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid referred_id"))
		return
	}

	referral, err := h.referralSvc.LinkReferral(c.Request.Context(), referrerID.(uuid.UUID), referredID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ReferralResponse{
		ID:           referral.ID.String(),
		ReferrerID:   referral.ReferrerID.String(),
		ReferredID:   referral.ReferredID.String(),
		BonusClaimed: referral.BonusClaimed,
		CreatedAt:    referral.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}
