package service

import (
	"context"
	"fmt"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"
	"cashback-platform/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReferralServiceImpl implements ports.ReferralService. It owns the
// registration-time flow only: linking a referred account to its
// referrer and paying the one-time activation bonus. The recurring
// per-transaction bonus is the settlement engine's job.
type ReferralServiceImpl struct {
	referralRepo    ports.ReferralRepository
	accountRepo     ports.AccountRepository
	transactor      ports.DBTransactor
	activationBonus int64 // minor units; 0 disables the bonus
	log             zerolog.Logger
}

// NewReferralService creates a new ReferralServiceImpl.
func NewReferralService(
	referralRepo ports.ReferralRepository,
	accountRepo ports.AccountRepository,
	transactor ports.DBTransactor,
	activationBonus int64,
	log zerolog.Logger,
) *ReferralServiceImpl {
	return &ReferralServiceImpl{
		referralRepo:    referralRepo,
		accountRepo:     accountRepo,
		transactor:      transactor,
		activationBonus: activationBonus,
		log:             log,
	}
}

// LinkReferral records referrer -> referred and pays the activation
// bonus exactly once, gated by the bonus_claimed conditional update.
// Re-invocations for the same referred account fail without a second
// credit.
func (s *ReferralServiceImpl) LinkReferral(ctx context.Context, referrerID, referredID uuid.UUID) (*domain.Referral, error) {
	if referrerID == referredID {
		return nil, apperror.Validation("an account cannot refer itself")
	}

	existing, err := s.referralRepo.GetByReferred(ctx, referredID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup referral: %w", err))
	}
	if existing != nil && existing.ReferrerID != referrerID {
		return nil, apperror.Validation("account is already referred by another account")
	}
	if existing != nil && existing.BonusClaimed {
		return nil, apperror.ErrBonusAlreadyClaimed()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	referral := existing
	if referral == nil {
		referral = &domain.Referral{
			ID:         uuid.New(),
			ReferrerID: referrerID,
			ReferredID: referredID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.referralRepo.Create(ctx, dbTx, referral); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create referral: %w", err))
		}
	}

	claimed, err := s.referralRepo.ClaimActivationBonus(ctx, dbTx, referredID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("claim activation bonus: %w", err))
	}
	if !claimed {
		return nil, apperror.ErrBonusAlreadyClaimed()
	}

	if s.activationBonus > 0 {
		if err := s.accountRepo.Credit(ctx, dbTx, referrerID, domain.SourceBonus, s.activationBonus, true); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("credit activation bonus: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit referral: %w", err))
	}

	referral.BonusClaimed = true

	s.log.Info().
		Str("referrer_id", referrerID.String()).
		Str("referred_id", referredID.String()).
		Int64("activation_bonus", s.activationBonus).
		Msg("referral linked")

	return referral, nil
}
