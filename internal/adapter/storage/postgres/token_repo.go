package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cashback-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements ports.TokenRepository.
type TokenRepo struct {
	pool Pool
}

// NewTokenRepo creates a new TokenRepo.
func NewTokenRepo(pool Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

// Create inserts a new payment token.
func (r *TokenRepo) Create(ctx context.Context, t *domain.PaymentToken) error {
	query := `INSERT INTO payment_tokens (id, code, issuer_id, amount, description, status, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Code, t.IssuerID, t.Amount, t.Description,
		t.Status, t.IssuedAt, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment token: %w", err)
	}
	return nil
}

// GetByCode fetches a token by its code (non-locking read).
func (r *TokenRepo) GetByCode(ctx context.Context, code string) (*domain.PaymentToken, error) {
	query := `SELECT id, code, issuer_id, amount, description, status, issued_at, expires_at, used_by, used_at
		FROM payment_tokens WHERE code = $1`

	return r.scanToken(r.pool.QueryRow(ctx, query, code))
}

// GetByCodeForUpdate fetches a token by code with pessimistic locking.
// This MUST be called within a transaction.
func (r *TokenRepo) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.PaymentToken, error) {
	query := `SELECT id, code, issuer_id, amount, description, status, issued_at, expires_at, used_by, used_at
		FROM payment_tokens WHERE code = $1 FOR UPDATE`

	return r.scanToken(tx.QueryRow(ctx, query, code))
}

// MarkUsed performs the conditional ACTIVE -> USED transition within
// the settlement transaction. The WHERE clause carries the full
// consume condition so a concurrent consume, cancel, or expiry makes
// the update match zero rows.
func (r *TokenRepo) MarkUsed(ctx context.Context, tx pgx.Tx, code string, usedBy uuid.UUID, usedAt time.Time) (bool, error) {
	query := `UPDATE payment_tokens SET status = 'USED', used_by = $1, used_at = $2
		WHERE code = $3 AND status = 'ACTIVE' AND expires_at > $2`

	tag, err := tx.Exec(ctx, query, usedBy, usedAt, code)
	if err != nil {
		return false, fmt.Errorf("mark token used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkExpired performs the conditional ACTIVE -> EXPIRED transition.
// Only past-deadline rows match; calling it on a live token is a no-op.
func (r *TokenRepo) MarkExpired(ctx context.Context, code string) (bool, error) {
	query := `UPDATE payment_tokens SET status = 'EXPIRED'
		WHERE code = $1 AND status = 'ACTIVE' AND expires_at <= NOW()`

	tag, err := r.pool.Exec(ctx, query, code)
	if err != nil {
		return false, fmt.Errorf("mark token expired: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel performs the conditional ACTIVE -> CANCELLED transition.
func (r *TokenRepo) Cancel(ctx context.Context, code string) (bool, error) {
	query := `UPDATE payment_tokens SET status = 'CANCELLED'
		WHERE code = $1 AND status = 'ACTIVE' AND expires_at > NOW()`

	tag, err := r.pool.Exec(ctx, query, code)
	if err != nil {
		return false, fmt.Errorf("cancel token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// scanToken is a helper to scan a single row into a PaymentToken.
func (r *TokenRepo) scanToken(row pgx.Row) (*domain.PaymentToken, error) {
	t := &domain.PaymentToken{}
	err := row.Scan(
		&t.ID, &t.Code, &t.IssuerID, &t.Amount, &t.Description,
		&t.Status, &t.IssuedAt, &t.ExpiresAt, &t.UsedBy, &t.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment token: %w", err)
	}
	return t, nil
}
