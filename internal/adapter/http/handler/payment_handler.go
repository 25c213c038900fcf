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

// PaymentHandler handles settlement endpoints.
type PaymentHandler struct {
	settlementSvc ports.SettlementService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlementSvc ports.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlementSvc: settlementSvc}
}

// SettlePayment handles POST /api/v1/payments.
func (h *PaymentHandler) SettlePayment(c *gin.Context) {
	consumerID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.settlementSvc.SettlePayment(c.Request.Context(), ports.SettleRequest{
		Code:       req.Code,
		ConsumerID: consumerID.(uuid.UUID),
		Source:     domain.BalanceSource(req.Source),
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ItemResponse, 0, len(result.Items))
	for i := range result.Items {
		it := &result.Items[i]
		items = append(items, dto.ItemResponse{
			Kind:        string(it.Kind),
			AccountID:   it.AccountID.String(),
			Amount:      it.Amount,
			Description: it.Description,
		})
	}

	response.Created(c, dto.SettlementResponse{
		Transaction: toTransactionResponse(result.Transaction),
		Items:       items,
		Fees: dto.FeeBreakdownResponse{
			ClientCashback: result.Fees.ClientCashback,
			PlatformFee:    result.Fees.PlatformFee,
			ReferralBonus:  result.Fees.ReferralBonus,
			MerchantNet:    result.Fees.MerchantNet,
		},
	})
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:             tx.ID.String(),
		PayerID:        tx.PayerID.String(),
		MerchantID:     tx.MerchantID.String(),
		Amount:         tx.Amount,
		CashbackAmount: tx.CashbackAmount,
		Status:         string(tx.Status),
		PaymentMethod:  tx.PaymentMethod,
		SourceToken:    tx.SourceToken,
		CreatedAt:      tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
