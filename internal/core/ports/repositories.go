package ports

import (
	"context"
	"time"

	"cashback-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TokenRepository defines persistence operations for payment tokens.
// Methods accepting pgx.Tx run inside the settlement unit; the
// check-and-set methods return false when the conditional update
// matched no row, which callers must map to a business error.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.PaymentToken) error
	GetByCode(ctx context.Context, code string) (*domain.PaymentToken, error)
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.PaymentToken, error)
	// MarkUsed transitions ACTIVE -> USED iff the row is still ACTIVE
	// and not past its deadline. This is the linearization point for
	// at-most-once consumption.
	MarkUsed(ctx context.Context, tx pgx.Tx, code string, usedBy uuid.UUID, usedAt time.Time) (bool, error)
	// MarkExpired transitions ACTIVE -> EXPIRED; best-effort, invoked
	// outside the settlement unit after a lazy expiry check.
	MarkExpired(ctx context.Context, code string) (bool, error)
	// Cancel transitions ACTIVE -> CANCELLED.
	Cancel(ctx context.Context, code string) (bool, error)
}

// AccountRepository defines persistence for per-account balances.
type AccountRepository interface {
	CreateBalance(ctx context.Context, balance *domain.AccountBalance) error
	GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.AccountBalance, error)
	GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.AccountBalance, error)
	// Credit adds amount to the selected source; earning credits also
	// increment total_earned.
	Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, source domain.BalanceSource, amount int64, earning bool) error
	// Debit subtracts amount from the selected source. The update is
	// guarded by `source_balance >= amount`; returns false when the
	// guard rejects the row.
	Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, source domain.BalanceSource, amount int64) (bool, error)
}

// TransactionRepository defines persistence for transactions and their
// double-entry line items.
type TransactionRepository interface {
	// Create persists the transaction and all items in one shot.
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction, items []domain.TransactionItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetItems(ctx context.Context, transactionID uuid.UUID) ([]domain.TransactionItem, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetStats(ctx context.Context, accountID uuid.UUID, periodStart *int64) (*TransactionStats, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	PayerID    *uuid.UUID
	MerchantID *uuid.UUID
	Status     *domain.TransactionStatus
	From       *int64 // Unix timestamp
	To         *int64 // Unix timestamp
	Page       int
	PageSize   int
}

// TransactionStats holds aggregated statistics for dashboards. The
// account is matched on either side (payer or merchant).
type TransactionStats struct {
	TotalTransactions int64
	Completed         int64
	Cancelled         int64
	Refunded          int64
	TotalVolume       int64 // Sum of completed amounts
	TotalCashback     int64 // Sum of completed cashback amounts
}

// ReferralRepository defines persistence for referral links.
type ReferralRepository interface {
	Create(ctx context.Context, tx pgx.Tx, referral *domain.Referral) error
	// GetByReferred returns the referral link whose referred side is
	// the given account, or nil. Single level: at most one row.
	GetByReferred(ctx context.Context, referredID uuid.UUID) (*domain.Referral, error)
	// ClaimActivationBonus flips bonus_claimed false -> true; returns
	// false when the bonus was already claimed.
	ClaimActivationBonus(ctx context.Context, tx pgx.Tx, referredID uuid.UUID) (bool, error)
}

// RateRepository reads the commission configuration. The engine never
// writes to it; admin screens own mutation.
type RateRepository interface {
	GetCurrent(ctx context.Context) (*domain.RateSnapshot, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
