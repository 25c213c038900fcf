package handler

import (
	"math"
	"strconv"

	"cashback-platform/internal/adapter/http/dto"
	"cashback-platform/internal/adapter/http/middleware"
	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/pkg/apperror"
	"cashback-platform/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DashboardHandler handles dashboard, transaction and balance endpoints.
type DashboardHandler struct {
	reportingSvc ports.ReportingService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(reportingSvc ports.ReportingService) *DashboardHandler {
	return &DashboardHandler{reportingSvc: reportingSvc}
}

// GetStats handles GET /api/v1/dashboard/stats.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	accountID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	period := c.DefaultQuery("period", "all")
	stats, err := h.reportingSvc.GetDashboardStats(c.Request.Context(), accountID.(uuid.UUID), period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DashboardStatsResponse{
		TotalTransactions: stats.TotalTransactions,
		Completed:         stats.Completed,
		Cancelled:         stats.Cancelled,
		Refunded:          stats.Refunded,
		TotalVolume:       stats.TotalVolume,
		TotalCashback:     stats.TotalCashback,
	})
}

// GetBalance handles GET /api/v1/accounts/balance.
func (h *DashboardHandler) GetBalance(c *gin.Context) {
	accountID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.reportingSvc.GetBalance(c.Request.Context(), accountID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		AccountID:     balance.AccountID.String(),
		WalletBalance: balance.WalletBalance,
		BonusBalance:  balance.BonusBalance,
		TotalEarned:   balance.TotalEarned,
		TotalSpent:    balance.TotalSpent,
	})
}

// GetTransaction handles GET /api/v1/transactions/:id.
func (h *DashboardHandler) GetTransaction(c *gin.Context) {
	accountID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	txn, txItems, err := h.reportingSvc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	// A transaction is only visible to its own parties.
	caller := accountID.(uuid.UUID)
	if txn.PayerID != caller && txn.MerchantID != caller {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	items := make([]dto.ItemResponse, 0, len(txItems))
	for i := range txItems {
		it := &txItems[i]
		items = append(items, dto.ItemResponse{
			Kind:        string(it.Kind),
			AccountID:   it.AccountID.String(),
			Amount:      it.Amount,
			Description: it.Description,
		})
	}

	response.OK(c, gin.H{
		"transaction": toTransactionResponse(txn),
		"items":       items,
	})
}

// ListTransactions handles GET /api/v1/transactions.
func (h *DashboardHandler) ListTransactions(c *gin.Context) {
	accountID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	caller := accountID.(uuid.UUID)
	params := ports.TransactionListParams{
		Page:     page,
		PageSize: pageSize,
	}

	// The caller picks which side of the ledger to look at.
	switch c.DefaultQuery("side", "payer") {
	case "merchant":
		params.MerchantID = &caller
	default:
		params.PayerID = &caller
	}

	if s := c.Query("status"); s != "" {
		status := domain.TransactionStatus(s)
		params.Status = &status
	}
	if f := c.Query("from"); f != "" {
		if v, err := strconv.ParseInt(f, 10, 64); err == nil {
			params.From = &v
		}
	}
	if t := c.Query("to"); t != "" {
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			params.To = &v
		}
	}

	txns, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}
