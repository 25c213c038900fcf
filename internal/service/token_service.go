package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/pkg/apperror"
	"cashback-platform/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// TokenServiceImpl implements ports.TokenService.
type TokenServiceImpl struct {
	tokenRepo ports.TokenRepository
	ttl       time.Duration
	minAmount int64
	log       zerolog.Logger
}

// NewTokenService creates a new TokenServiceImpl. ttl bounds a token's
// life from issuance; minAmount is the smallest issuable amount in
// minor units.
func NewTokenService(tokenRepo ports.TokenRepository, ttl time.Duration, minAmount int64, log zerolog.Logger) *TokenServiceImpl {
	return &TokenServiceImpl{
		tokenRepo: tokenRepo,
		ttl:       ttl,
		minAmount: minAmount,
		log:       log,
	}
}

// Issue creates a single-use payment token and its QR rendering.
func (s *TokenServiceImpl) Issue(ctx context.Context, req ports.IssueTokenRequest) (*ports.IssuedToken, error) {
	if req.Amount < s.minAmount {
		return nil, apperror.Validation(fmt.Sprintf("amount below minimum of %s", money.Format(s.minAmount)))
	}

	code, err := generateTokenCode()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token code: %w", err))
	}

	now := time.Now().UTC()
	token := &domain.PaymentToken{
		ID:          uuid.New(),
		Code:        code,
		IssuerID:    req.IssuerID,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      domain.TokenStatusActive,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create token: %w", err))
	}

	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("render qr: %w", err))
	}

	s.log.Info().
		Str("code", code).
		Str("issuer_id", req.IssuerID.String()).
		Str("amount", money.Format(req.Amount)).
		Time("expires_at", token.ExpiresAt).
		Msg("payment token issued")

	return &ports.IssuedToken{
		Token:   token,
		QRImage: base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Validate returns the token with lazy expiry folded into its status.
// Read-only with respect to the settlement path; the stored EXPIRED
// transition is recorded best-effort.
func (s *TokenServiceImpl) Validate(ctx context.Context, code string) (*domain.PaymentToken, error) {
	token, err := s.tokenRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get token: %w", err))
	}
	if token == nil {
		return nil, apperror.ErrTokenNotFound()
	}

	now := time.Now().UTC()
	if token.Status == domain.TokenStatusActive && token.IsExpired(now) {
		if _, mErr := s.tokenRepo.MarkExpired(ctx, code); mErr != nil {
			s.log.Warn().Err(mErr).Str("code", code).Msg("failed to mark token expired")
		}
		token.Status = domain.TokenStatusExpired
	}

	return token, nil
}

// Cancel transitions an active token to CANCELLED. Only the issuer may
// cancel its own token.
func (s *TokenServiceImpl) Cancel(ctx context.Context, code string, callerID uuid.UUID) (*domain.PaymentToken, error) {
	token, err := s.tokenRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get token: %w", err))
	}
	if token == nil {
		return nil, apperror.ErrTokenNotFound()
	}
	if token.IssuerID != callerID {
		return nil, apperror.ErrForbidden()
	}

	ok, err := s.tokenRepo.Cancel(ctx, code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("cancel token: %w", err))
	}
	if !ok {
		// The conditional update lost to a concurrent transition;
		// report the state that won.
		switch token.EffectiveStatus(time.Now().UTC()) {
		case domain.TokenStatusExpired:
			return nil, apperror.ErrTokenExpired()
		case domain.TokenStatusCancelled:
			return nil, apperror.ErrTokenCancelled()
		default:
			return nil, apperror.ErrTokenAlreadyUsed()
		}
	}

	token.Status = domain.TokenStatusCancelled
	s.log.Info().Str("code", code).Str("issuer_id", callerID.String()).Msg("payment token cancelled")
	return token, nil
}

// generateTokenCode returns a 32-hex-char random code.
func generateTokenCode() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
