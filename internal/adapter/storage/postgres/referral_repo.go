package postgres

import (
	"context"
	"errors"
	"fmt"

	"cashback-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReferralRepo implements ports.ReferralRepository.
type ReferralRepo struct {
	pool Pool
}

// NewReferralRepo creates a new ReferralRepo.
func NewReferralRepo(pool Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

// Create inserts a referral link within a transaction. The unique
// constraint on referred_id enforces single-level attribution at the
// storage layer as well.
func (r *ReferralRepo) Create(ctx context.Context, tx pgx.Tx, ref *domain.Referral) error {
	query := `INSERT INTO referrals (id, referrer_id, referred_id, bonus_claimed, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query,
		ref.ID, ref.ReferrerID, ref.ReferredID, ref.BonusClaimed, ref.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert referral: %w", err)
	}
	return nil
}

// GetByReferred fetches the referral link for a referred account.
func (r *ReferralRepo) GetByReferred(ctx context.Context, referredID uuid.UUID) (*domain.Referral, error) {
	query := `SELECT id, referrer_id, referred_id, bonus_claimed, created_at
		FROM referrals WHERE referred_id = $1`

	ref := &domain.Referral{}
	err := r.pool.QueryRow(ctx, query, referredID).Scan(
		&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.BonusClaimed, &ref.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get referral by referred: %w", err)
	}
	return ref, nil
}

// ClaimActivationBonus flips bonus_claimed false -> true. The guard in
// the WHERE clause makes the claim at-most-once under concurrency.
func (r *ReferralRepo) ClaimActivationBonus(ctx context.Context, tx pgx.Tx, referredID uuid.UUID) (bool, error) {
	query := `UPDATE referrals SET bonus_claimed = TRUE
		WHERE referred_id = $1 AND bonus_claimed = FALSE`

	tag, err := tx.Exec(ctx, query, referredID)
	if err != nil {
		return false, fmt.Errorf("claim activation bonus: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
