package handler

import (
	"cashback-platform/internal/adapter/http/dto"
	"cashback-platform/internal/adapter/http/middleware"
	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/pkg/apperror"
	"cashback-platform/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenHandler handles payment token endpoints.
type TokenHandler struct {
	tokenSvc ports.TokenService
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokenSvc ports.TokenService) *TokenHandler {
	return &TokenHandler{tokenSvc: tokenSvc}
}

// Issue handles POST /api/v1/tokens.
func (h *TokenHandler) Issue(c *gin.Context) {
	issuerID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	issued, err := h.tokenSvc.Issue(c.Request.Context(), ports.IssueTokenRequest{
		IssuerID:    issuerID.(uuid.UUID),
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := toTokenResponse(issued.Token)
	resp.QRImage = issued.QRImage
	response.Created(c, resp)
}

// Validate handles GET /api/v1/tokens/:code.
func (h *TokenHandler) Validate(c *gin.Context) {
	token, err := h.tokenSvc.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTokenResponse(token))
}

// Cancel handles DELETE /api/v1/tokens/:code.
func (h *TokenHandler) Cancel(c *gin.Context) {
	callerID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	token, err := h.tokenSvc.Cancel(c.Request.Context(), c.Param("code"), callerID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTokenResponse(token))
}

// toTokenResponse converts domain.PaymentToken to DTO.
func toTokenResponse(t *domain.PaymentToken) dto.TokenResponse {
	resp := dto.TokenResponse{
		ID:          t.ID.String(),
		Code:        t.Code,
		Amount:      t.Amount,
		Description: t.Description,
		Status:      string(t.Status),
		IssuedAt:    t.IssuedAt.Format("2006-01-02T15:04:05Z07:00"),
		ExpiresAt:   t.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.UsedBy != nil {
		s := t.UsedBy.String()
		resp.UsedBy = &s
	}
	if t.UsedAt != nil {
		s := t.UsedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.UsedAt = &s
	}
	return resp
}
