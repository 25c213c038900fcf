package postgres

import (
	"context"
	"errors"
	"fmt"

	"cashback-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// balanceColumn maps a source to its column. The switch doubles as a
// whitelist: source values never reach the SQL text unvalidated.
func balanceColumn(source domain.BalanceSource) (string, error) {
	switch source {
	case domain.SourceWallet:
		return "wallet_balance", nil
	case domain.SourceBonus:
		return "bonus_balance", nil
	default:
		return "", fmt.Errorf("unknown balance source: %s", source)
	}
}

// CreateBalance inserts a fresh ledger row for an account.
func (r *AccountRepo) CreateBalance(ctx context.Context, b *domain.AccountBalance) error {
	query := `INSERT INTO account_balances (account_id, wallet_balance, bonus_balance, total_earned, total_spent, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`

	_, err := r.pool.Exec(ctx, query,
		b.AccountID, b.WalletBalance, b.BonusBalance, b.TotalEarned, b.TotalSpent,
	)
	if err != nil {
		return fmt.Errorf("insert account balance: %w", err)
	}
	return nil
}

// GetBalance fetches an account's ledger row (non-locking read).
func (r *AccountRepo) GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.AccountBalance, error) {
	query := `SELECT account_id, wallet_balance, bonus_balance, total_earned, total_spent, updated_at
		FROM account_balances WHERE account_id = $1`

	return r.scanBalance(r.pool.QueryRow(ctx, query, accountID))
}

// GetBalanceForUpdate fetches an account's ledger row with pessimistic
// locking. This MUST be called within a transaction.
func (r *AccountRepo) GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.AccountBalance, error) {
	query := `SELECT account_id, wallet_balance, bonus_balance, total_earned, total_spent, updated_at
		FROM account_balances WHERE account_id = $1 FOR UPDATE`

	return r.scanBalance(tx.QueryRow(ctx, query, accountID))
}

// Credit adds amount to the selected balance within a transaction.
func (r *AccountRepo) Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, source domain.BalanceSource, amount int64, earning bool) error {
	col, err := balanceColumn(source)
	if err != nil {
		return err
	}

	earned := int64(0)
	if earning {
		earned = amount
	}

	query := fmt.Sprintf(`UPDATE account_balances
		SET %s = %s + $1, total_earned = total_earned + $2, updated_at = NOW()
		WHERE account_id = $3`, col, col)

	tag, err := tx.Exec(ctx, query, amount, earned, accountID)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account balance not found: %s", accountID)
	}
	return nil
}

// Debit subtracts amount from the selected balance within a
// transaction. The guard in the WHERE clause makes overdraft
// impossible regardless of what the caller read beforehand.
func (r *AccountRepo) Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, source domain.BalanceSource, amount int64) (bool, error) {
	col, err := balanceColumn(source)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`UPDATE account_balances
		SET %s = %s - $1, total_spent = total_spent + $1, updated_at = NOW()
		WHERE account_id = $2 AND %s >= $1`, col, col, col)

	tag, err := tx.Exec(ctx, query, amount, accountID)
	if err != nil {
		return false, fmt.Errorf("debit account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// scanBalance is a helper to scan a single row into an AccountBalance.
func (r *AccountRepo) scanBalance(row pgx.Row) (*domain.AccountBalance, error) {
	b := &domain.AccountBalance{}
	err := row.Scan(
		&b.AccountID, &b.WalletBalance, &b.BonusBalance,
		&b.TotalEarned, &b.TotalSpent, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account balance: %w", err)
	}
	return b, nil
}
