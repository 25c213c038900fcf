package service

import (
	"context"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	txRepo      ports.TransactionRepository
	accountRepo ports.AccountRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(txRepo ports.TransactionRepository, accountRepo ports.AccountRepository) ports.ReportingService {
	return &reportingService{
		txRepo:      txRepo,
		accountRepo: accountRepo,
	}
}

// GetTransaction returns a transaction and its line items.
func (s *reportingService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, []domain.TransactionItem, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, apperror.InternalError(err)
	}
	if txn == nil {
		return nil, nil, apperror.ErrNotFound("transaction")
	}

	items, err := s.txRepo.GetItems(ctx, id)
	if err != nil {
		return nil, nil, apperror.InternalError(err)
	}
	return txn, items, nil
}

// ListTransactions returns a paginated, filtered list of transactions.
func (s *reportingService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

// GetDashboardStats returns aggregated transaction stats for the account.
func (s *reportingService) GetDashboardStats(ctx context.Context, accountID uuid.UUID, period string) (*ports.TransactionStats, error) {
	var periodStart *int64

	switch period {
	case "day":
		t := time.Now().AddDate(0, 0, -1).Unix()
		periodStart = &t
	case "week":
		t := time.Now().AddDate(0, 0, -7).Unix()
		periodStart = &t
	case "month":
		t := time.Now().AddDate(0, -1, 0).Unix()
		periodStart = &t
	case "all", "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	stats, err := s.txRepo.GetStats(ctx, accountID, periodStart)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return stats, nil
}

// GetBalance returns the account's ledger row.
func (s *reportingService) GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.AccountBalance, error) {
	balance, err := s.accountRepo.GetBalance(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if balance == nil {
		return nil, apperror.ErrNotFound("account balance")
	}
	return balance, nil
}
