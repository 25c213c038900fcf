package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testTokenTTL  = 15 * time.Minute
	testMinAmount = int64(500)
)

func setupTokenService(t *testing.T) (*TokenServiceImpl, *mocks.MockTokenRepository, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTokenRepository(ctrl)
	svc := NewTokenService(repo, testTokenTTL, testMinAmount, zerolog.Nop())
	return svc, repo, ctrl
}

// ==================== Issue Tests ====================

func TestTokenService_Issue_Success(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	issuerID := uuid.New()

	var created *domain.PaymentToken
	repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, tok *domain.PaymentToken) error {
			created = tok
			return nil
		})

	result, err := svc.Issue(ctx, ports.IssueTokenRequest{
		IssuerID:    issuerID,
		Amount:      10000,
		Description: "Order #42",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, created)

	assert.Equal(t, domain.TokenStatusActive, created.Status)
	assert.Equal(t, issuerID, created.IssuerID)
	assert.Equal(t, int64(10000), created.Amount)
	assert.Len(t, created.Code, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", created.Code)
	assert.WithinDuration(t, created.IssuedAt.Add(testTokenTTL), created.ExpiresAt, time.Second)

	// QR payload must be a decodable PNG
	png, err := base64.StdEncoding.DecodeString(result.QRImage)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestTokenService_Issue_UniqueCodes(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	seen := make(map[string]bool)
	repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, tok *domain.PaymentToken) error {
			assert.False(t, seen[tok.Code], "duplicate token code %s", tok.Code)
			seen[tok.Code] = true
			return nil
		}).Times(50)

	for i := 0; i < 50; i++ {
		_, err := svc.Issue(ctx, ports.IssueTokenRequest{IssuerID: uuid.New(), Amount: 1000})
		require.NoError(t, err)
	}
}

func TestTokenService_Issue_BelowMinimum(t *testing.T) {
	svc, _, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	result, err := svc.Issue(context.Background(), ports.IssueTokenRequest{
		IssuerID: uuid.New(),
		Amount:   499,
	})
	assert.Nil(t, result)
	assertAppError(t, err, "PAY_002")
}

// ==================== Validate Tests ====================

func TestTokenService_Validate_Active(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	token := activeToken(uuid.New(), 10000)

	repo.EXPECT().GetByCode(ctx, token.Code).Return(token, nil)

	result, err := svc.Validate(ctx, token.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusActive, result.Status)
}

func TestTokenService_Validate_NotFound(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo.EXPECT().GetByCode(ctx, "nope").Return(nil, nil)

	result, err := svc.Validate(ctx, "nope")
	assert.Nil(t, result)
	assertAppError(t, err, "TKN_001")
}

func TestTokenService_Validate_LazyExpiry(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	token := activeToken(uuid.New(), 10000)
	token.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	repo.EXPECT().GetByCode(ctx, token.Code).Return(token, nil)
	repo.EXPECT().MarkExpired(ctx, token.Code).Return(true, nil)

	result, err := svc.Validate(ctx, token.Code)
	require.NoError(t, err)
	// The stale ACTIVE row is reported as EXPIRED
	assert.Equal(t, domain.TokenStatusExpired, result.Status)
}

func TestTokenService_Validate_MarkExpiredFailureIsNonFatal(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	token := activeToken(uuid.New(), 10000)
	token.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	repo.EXPECT().GetByCode(ctx, token.Code).Return(token, nil)
	repo.EXPECT().MarkExpired(ctx, token.Code).Return(false, assert.AnError)

	result, err := svc.Validate(ctx, token.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusExpired, result.Status)
}

// ==================== Cancel Tests ====================

func TestTokenService_Cancel_Success(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	issuerID := uuid.New()
	token := activeToken(issuerID, 10000)

	repo.EXPECT().GetByCode(ctx, token.Code).Return(token, nil)
	repo.EXPECT().Cancel(ctx, token.Code).Return(true, nil)

	result, err := svc.Cancel(ctx, token.Code, issuerID)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusCancelled, result.Status)
}

func TestTokenService_Cancel_NotIssuer(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	token := activeToken(uuid.New(), 10000)

	repo.EXPECT().GetByCode(ctx, token.Code).Return(token, nil)

	result, err := svc.Cancel(ctx, token.Code, uuid.New())
	assert.Nil(t, result)
	assertAppError(t, err, "AUTH_002")
}

func TestTokenService_Cancel_LostToConcurrentUse(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	issuerID := uuid.New()
	token := activeToken(issuerID, 10000)

	repo.EXPECT().GetByCode(ctx, token.Code).Return(token, nil)
	// Another caller consumed the token between read and cancel
	repo.EXPECT().Cancel(ctx, token.Code).Return(false, nil)

	result, err := svc.Cancel(ctx, token.Code, issuerID)
	assert.Nil(t, result)
	assertAppError(t, err, "TKN_003")
}

func TestTokenService_Cancel_LostToExpiry(t *testing.T) {
	svc, repo, ctrl := setupTokenService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	issuerID := uuid.New()
	token := activeToken(issuerID, 10000)
	token.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	repo.EXPECT().GetByCode(ctx, token.Code).Return(token, nil)
	repo.EXPECT().Cancel(ctx, token.Code).Return(false, nil)

	result, err := svc.Cancel(ctx, token.Code, issuerID)
	assert.Nil(t, result)
	assertAppError(t, err, "TKN_002")
}
