package service

import (
	"context"
	"testing"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupReportingService(t *testing.T) (ports.ReportingService, *mocks.MockTransactionRepository, *mocks.MockAccountRepository, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	return NewReportingService(txRepo, accountRepo), txRepo, accountRepo, ctrl
}

func TestReportingService_GetTransaction(t *testing.T) {
	svc, txRepo, _, ctrl := setupReportingService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	txID := uuid.New()
	txn := &domain.Transaction{ID: txID, Amount: 10000, Status: domain.TransactionStatusCompleted}
	items := []domain.TransactionItem{
		{ID: uuid.New(), TransactionID: txID, Kind: domain.ItemPayerDebit, Amount: -10000},
		{ID: uuid.New(), TransactionID: txID, Kind: domain.ItemMerchantCredit, Amount: 10000},
	}

	txRepo.EXPECT().GetByID(ctx, txID).Return(txn, nil)
	txRepo.EXPECT().GetItems(ctx, txID).Return(items, nil)

	gotTxn, gotItems, err := svc.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, txn, gotTxn)
	assert.Len(t, gotItems, 2)
}

func TestReportingService_GetTransaction_NotFound(t *testing.T) {
	svc, txRepo, _, ctrl := setupReportingService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	txID := uuid.New()
	txRepo.EXPECT().GetByID(ctx, txID).Return(nil, nil)

	_, _, err := svc.GetTransaction(ctx, txID)
	assertAppError(t, err, "PAY_004")
}

func TestReportingService_ListTransactions(t *testing.T) {
	svc, txRepo, _, ctrl := setupReportingService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	payerID := uuid.New()
	params := ports.TransactionListParams{PayerID: &payerID, Page: 1, PageSize: 20}

	txRepo.EXPECT().List(ctx, params).Return([]domain.Transaction{
		{ID: uuid.New(), PayerID: payerID, Amount: 5000},
	}, int64(1), nil)

	txns, total, err := svc.ListTransactions(ctx, params)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, int64(1), total)
}

func TestReportingService_GetDashboardStats_Periods(t *testing.T) {
	tests := []struct {
		period    string
		wantStart bool
	}{
		{"day", true},
		{"week", true},
		{"month", true},
		{"all", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("period_"+tt.period, func(t *testing.T) {
			svc, txRepo, _, ctrl := setupReportingService(t)
			defer ctrl.Finish()

			ctx := context.Background()
			accountID := uuid.New()

			txRepo.EXPECT().GetStats(ctx, accountID, gomock.Any()).DoAndReturn(
				func(_ context.Context, _ uuid.UUID, periodStart *int64) (*ports.TransactionStats, error) {
					if tt.wantStart {
						require.NotNil(t, periodStart)
						assert.Less(t, *periodStart, time.Now().Unix())
					} else {
						assert.Nil(t, periodStart)
					}
					return &ports.TransactionStats{TotalTransactions: 3}, nil
				})

			stats, err := svc.GetDashboardStats(ctx, accountID, tt.period)
			require.NoError(t, err)
			assert.Equal(t, int64(3), stats.TotalTransactions)
		})
	}
}

func TestReportingService_GetDashboardStats_InvalidPeriod(t *testing.T) {
	svc, _, _, ctrl := setupReportingService(t)
	defer ctrl.Finish()

	_, err := svc.GetDashboardStats(context.Background(), uuid.New(), "year")
	assertAppError(t, err, "PAY_002")
}

func TestReportingService_GetBalance(t *testing.T) {
	svc, _, accountRepo, ctrl := setupReportingService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	accountRepo.EXPECT().GetBalance(ctx, accountID).Return(&domain.AccountBalance{
		AccountID:     accountID,
		WalletBalance: 12345,
		BonusBalance:  678,
	}, nil)

	balance, err := svc.GetBalance(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), balance.WalletBalance)
	assert.Equal(t, int64(678), balance.BonusBalance)
}

func TestReportingService_GetBalance_NotFound(t *testing.T) {
	svc, _, accountRepo, ctrl := setupReportingService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	accountRepo.EXPECT().GetBalance(ctx, accountID).Return(nil, nil)

	_, err := svc.GetBalance(ctx, accountID)
	assertAppError(t, err, "PAY_004")
}
