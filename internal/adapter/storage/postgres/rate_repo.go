package postgres

import (
	"context"
	"errors"
	"fmt"

	"cashback-platform/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RateRepo implements ports.RateRepository. Read-only: the settlement
// engine consumes the commission configuration, it never mutates it.
type RateRepo struct {
	pool Pool
}

// NewRateRepo creates a new RateRepo.
func NewRateRepo(pool Pool) *RateRepo {
	return &RateRepo{pool: pool}
}

// GetCurrent fetches the latest effective rate row. Rate changes are
// appended, never updated in place, so the newest effective_at wins.
func (r *RateRepo) GetCurrent(ctx context.Context) (*domain.RateSnapshot, error) {
	query := `SELECT platform_fee_bps, merchant_commission_bps, client_cashback_bps, referral_bonus_bps, min_withdrawal, effective_at
		FROM commission_rates
		WHERE effective_at <= NOW()
		ORDER BY effective_at DESC LIMIT 1`

	s := &domain.RateSnapshot{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.PlatformFeeBps, &s.MerchantCommissionBps, &s.ClientCashbackBps,
		&s.ReferralBonusBps, &s.MinWithdrawal, &s.EffectiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no commission rates configured")
		}
		return nil, fmt.Errorf("get current rates: %w", err)
	}
	return s, nil
}
