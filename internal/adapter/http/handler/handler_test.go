package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cashback-platform/internal/adapter/http/dto"
	"cashback-platform/internal/adapter/http/middleware"
	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/internal/core/ports/mocks"
	"cashback-platform/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testCode = "a1b2c3d4e5f60718293a4b5c6d7e8f90"

// newAuthedContext builds a test context carrying session claims, as
// SessionAuth would have set them.
func newAuthedContext(t *testing.T, accountID uuid.UUID, role domain.AccountRole, method, path string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxAccountID, accountID)
	c.Set(middleware.CtxRole, role)
	return c, w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, code, resp["error_code"])
}

// --- Token Handler Tests ---

func TestIssueToken_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTokenService(ctrl)
	h := NewTokenHandler(mockSvc)

	issuerID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	mockSvc.EXPECT().Issue(gomock.Any(), ports.IssueTokenRequest{
		IssuerID:    issuerID,
		Amount:      10000,
		Description: "table 4",
	}).Return(&ports.IssuedToken{
		Token: &domain.PaymentToken{
			ID:          uuid.New(),
			Code:        testCode,
			IssuerID:    issuerID,
			Amount:      10000,
			Description: "table 4",
			Status:      domain.TokenStatusActive,
			IssuedAt:    now,
			ExpiresAt:   now.Add(15 * time.Minute),
		},
		QRImage: "iVBORw0KGgo=",
	}, nil)

	c, w := newAuthedContext(t, issuerID, domain.RoleMerchant, http.MethodPost, "/api/v1/tokens", dto.IssueTokenRequest{
		Amount:      10000,
		Description: "table 4",
	})

	h.Issue(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, testCode, data["code"])
	assert.Equal(t, "ACTIVE", data["status"])
	assert.Equal(t, "iVBORw0KGgo=", data["qr_image"])
	assert.Equal(t, float64(10000), data["amount"])
}

func TestIssueToken_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTokenHandler(mocks.NewMockTokenService(ctrl))

	// Zero amount fails the gt=0 binding, service never called.
	c, w := newAuthedContext(t, uuid.New(), domain.RoleMerchant, http.MethodPost, "/api/v1/tokens", dto.IssueTokenRequest{Amount: 0})

	h.Issue(c)

	assertErrorCode(t, w, http.StatusBadRequest, "PAY_002")
}

func TestIssueToken_MissingSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTokenHandler(mocks.NewMockTokenService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader(nil))

	h.Issue(c)

	assertErrorCode(t, w, http.StatusUnauthorized, "AUTH_001")
}

func TestValidateToken_Expired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTokenService(ctrl)
	h := NewTokenHandler(mockSvc)

	mockSvc.EXPECT().Validate(gomock.Any(), testCode).Return(nil, apperror.ErrTokenExpired())

	c, w := newAuthedContext(t, uuid.New(), domain.RoleClient, http.MethodGet, "/api/v1/tokens/"+testCode, nil)
	c.Params = gin.Params{{Key: "code", Value: testCode}}

	h.Validate(c)

	assertErrorCode(t, w, http.StatusGone, "TKN_002")
}

func TestCancelToken_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTokenService(ctrl)
	h := NewTokenHandler(mockSvc)

	issuerID := uuid.New()
	mockSvc.EXPECT().Cancel(gomock.Any(), testCode, issuerID).Return(&domain.PaymentToken{
		ID:       uuid.New(),
		Code:     testCode,
		IssuerID: issuerID,
		Amount:   5000,
		Status:   domain.TokenStatusCancelled,
	}, nil)

	c, w := newAuthedContext(t, issuerID, domain.RoleMerchant, http.MethodDelete, "/api/v1/tokens/"+testCode, nil)
	c.Params = gin.Params{{Key: "code", Value: testCode}}

	h.Cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "CANCELLED", data["status"])
}

// --- Payment Handler Tests ---

func TestSettlePayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockSettlementService(ctrl)
	h := NewPaymentHandler(mockSvc)

	payerID := uuid.New()
	merchantID := uuid.New()
	txnID := uuid.New()
	code := testCode

	mockSvc.EXPECT().SettlePayment(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, req ports.SettleRequest) (*ports.SettlementResult, error) {
			assert.Equal(t, code, req.Code)
			assert.Equal(t, payerID, req.ConsumerID)
			assert.Equal(t, domain.SourceWallet, req.Source)
			assert.NotEmpty(t, req.ClientIP)
			return &ports.SettlementResult{
				Transaction: &domain.Transaction{
					ID:             txnID,
					PayerID:        payerID,
					MerchantID:     merchantID,
					Amount:         10000,
					CashbackAmount: 200,
					Status:         domain.TransactionStatusCompleted,
					PaymentMethod:  "QR_TOKEN",
					SourceToken:    &code,
					CreatedAt:      time.Now().UTC(),
				},
				Items: []domain.TransactionItem{
					{Kind: domain.ItemPayerDebit, AccountID: payerID, Amount: -10000},
					{Kind: domain.ItemMerchantCredit, AccountID: merchantID, Amount: 9500},
					{Kind: domain.ItemPayerCashback, AccountID: payerID, Amount: 200},
					{Kind: domain.ItemPlatformFee, AccountID: uuid.New(), Amount: 300},
				},
				Fees: domain.FeeBreakdown{
					ClientCashback: 200,
					PlatformFee:    500,
					ReferralBonus:  100,
					MerchantNet:    9500,
					PlatformNet:    200,
				},
			}, nil
		})

	c, w := newAuthedContext(t, payerID, domain.RoleClient, http.MethodPost, "/api/v1/payments", dto.SettleRequest{
		Code:   code,
		Source: "WALLET",
	})

	h.SettlePayment(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	txn := data["transaction"].(map[string]interface{})
	assert.Equal(t, txnID.String(), txn["id"])
	assert.Equal(t, "COMPLETED", txn["status"])
	fees := data["fees"].(map[string]interface{})
	assert.Equal(t, float64(9500), fees["merchant_net"])
	items := data["items"].([]interface{})
	assert.Len(t, items, 4)
}

func TestSettlePayment_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockSettlementService(ctrl)
	h := NewPaymentHandler(mockSvc)

	mockSvc.EXPECT().SettlePayment(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	c, w := newAuthedContext(t, uuid.New(), domain.RoleClient, http.MethodPost, "/api/v1/payments", dto.SettleRequest{
		Code:   testCode,
		Source: "BONUS",
	})

	h.SettlePayment(c)

	assertErrorCode(t, w, http.StatusPaymentRequired, "PAY_001")
}

func TestSettlePayment_RejectsUnknownSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPaymentHandler(mocks.NewMockSettlementService(ctrl))

	c, w := newAuthedContext(t, uuid.New(), domain.RoleClient, http.MethodPost, "/api/v1/payments", map[string]string{
		"code":   testCode,
		"source": "CREDIT_CARD",
	})

	h.SettlePayment(c)

	assertErrorCode(t, w, http.StatusBadRequest, "PAY_002")
}

func TestSettlePayment_RejectsMalformedCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPaymentHandler(mocks.NewMockSettlementService(ctrl))

	c, w := newAuthedContext(t, uuid.New(), domain.RoleClient, http.MethodPost, "/api/v1/payments", map[string]string{
		"code":   "not a token code",
		"source": "WALLET",
	})

	h.SettlePayment(c)

	assertErrorCode(t, w, http.StatusBadRequest, "PAY_002")
}

// --- Referral Handler Tests ---

func TestLinkReferral_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReferralService(ctrl)
	h := NewReferralHandler(mockSvc)

	referrerID := uuid.New()
	referredID := uuid.New()
	mockSvc.EXPECT().LinkReferral(gomock.Any(), referrerID, referredID).Return(&domain.Referral{
		ID:           uuid.New(),
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		BonusClaimed: true,
		CreatedAt:    time.Now().UTC(),
	}, nil)

	c, w := newAuthedContext(t, referrerID, domain.RoleClient, http.MethodPost, "/api/v1/referrals", dto.LinkReferralRequest{
		ReferredID: referredID.String(),
	})

	h.LinkReferral(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, referredID.String(), data["referred_id"])
	assert.Equal(t, true, data["bonus_claimed"])
}

func TestLinkReferral_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewReferralHandler(mocks.NewMockReferralService(ctrl))

	c, w := newAuthedContext(t, uuid.New(), domain.RoleClient, http.MethodPost, "/api/v1/referrals", map[string]string{
		"referred_id": "not-a-uuid",
	})

	h.LinkReferral(c)

	assertErrorCode(t, w, http.StatusBadRequest, "PAY_002")
}

// --- Dashboard Handler Tests ---

func TestGetStats_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl)
	h := NewDashboardHandler(mockSvc)

	accountID := uuid.New()
	mockSvc.EXPECT().GetDashboardStats(gomock.Any(), accountID, "week").Return(&ports.TransactionStats{
		TotalTransactions: 12,
		Completed:         10,
		Cancelled:         2,
		TotalVolume:       120000,
		TotalCashback:     2400,
	}, nil)

	c, w := newAuthedContext(t, accountID, domain.RoleMerchant, http.MethodGet, "/api/v1/dashboard/stats?period=week", nil)

	h.GetStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(12), data["total_transactions"])
	assert.Equal(t, float64(120000), data["total_volume"])
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl)
	h := NewDashboardHandler(mockSvc)

	accountID := uuid.New()
	mockSvc.EXPECT().GetBalance(gomock.Any(), accountID).Return(&domain.AccountBalance{
		AccountID:     accountID,
		WalletBalance: 50000,
		BonusBalance:  1200,
		TotalEarned:   1200,
		TotalSpent:    10000,
	}, nil)

	c, w := newAuthedContext(t, accountID, domain.RoleClient, http.MethodGet, "/api/v1/accounts/balance", nil)

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(50000), data["wallet_balance"])
	assert.Equal(t, float64(1200), data["bonus_balance"])
}

func TestListTransactions_DefaultsToPayerSide(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl)
	h := NewDashboardHandler(mockSvc)

	accountID := uuid.New()
	mockSvc.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			require.NotNil(t, params.PayerID)
			assert.Equal(t, accountID, *params.PayerID)
			assert.Nil(t, params.MerchantID)
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, 20, params.PageSize)
			return []domain.Transaction{
				{ID: uuid.New(), PayerID: accountID, MerchantID: uuid.New(), Amount: 10000, Status: domain.TransactionStatusCompleted, CreatedAt: time.Now().UTC()},
			}, 41, nil
		})

	c, w := newAuthedContext(t, accountID, domain.RoleClient, http.MethodGet, "/api/v1/transactions", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(41), data["total"])
	assert.Equal(t, float64(3), data["total_pages"])
	assert.Len(t, data["items"].([]interface{}), 1)
}

func TestListTransactions_MerchantSideWithFilters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl)
	h := NewDashboardHandler(mockSvc)

	accountID := uuid.New()
	mockSvc.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			require.NotNil(t, params.MerchantID)
			assert.Equal(t, accountID, *params.MerchantID)
			require.NotNil(t, params.Status)
			assert.Equal(t, domain.TransactionStatusCompleted, *params.Status)
			require.NotNil(t, params.From)
			assert.Equal(t, int64(1700000000), *params.From)
			assert.Equal(t, 2, params.Page)
			return nil, 0, nil
		})

	c, w := newAuthedContext(t, accountID, domain.RoleMerchant, http.MethodGet,
		"/api/v1/transactions?side=merchant&status=COMPLETED&from=1700000000&page=2", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetTransaction_ForbiddenForStranger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl)
	h := NewDashboardHandler(mockSvc)

	txnID := uuid.New()
	mockSvc.EXPECT().GetTransaction(gomock.Any(), txnID).Return(&domain.Transaction{
		ID:         txnID,
		PayerID:    uuid.New(),
		MerchantID: uuid.New(),
	}, nil, nil)

	c, w := newAuthedContext(t, uuid.New(), domain.RoleClient, http.MethodGet, "/api/v1/transactions/"+txnID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: txnID.String()}}

	h.GetTransaction(c)

	assertErrorCode(t, w, http.StatusForbidden, "AUTH_002")
}

func TestGetTransaction_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockReportingService(ctrl)
	h := NewDashboardHandler(mockSvc)

	txnID := uuid.New()
	payerID := uuid.New()
	mockSvc.EXPECT().GetTransaction(gomock.Any(), txnID).Return(&domain.Transaction{
		ID:         txnID,
		PayerID:    payerID,
		MerchantID: uuid.New(),
		Amount:     10000,
		Status:     domain.TransactionStatusCompleted,
	}, []domain.TransactionItem{
		{Kind: domain.ItemPayerDebit, AccountID: payerID, Amount: -10000},
	}, nil)

	c, w := newAuthedContext(t, payerID, domain.RoleClient, http.MethodGet, "/api/v1/transactions/"+txnID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: txnID.String()}}

	h.GetTransaction(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.NotNil(t, data["transaction"])
	assert.Len(t, data["items"].([]interface{}), 1)
}

// --- Health Handler Tests ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(_ context.Context) error { return f.err }
func (f fakeChecker) Name() string                 { return f.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}
