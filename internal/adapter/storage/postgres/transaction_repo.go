package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts the transaction and all of its line items within the
// settlement transaction. Partial writes cannot survive: everything
// rides on the caller's commit.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction, items []domain.TransactionItem) error {
	query := `INSERT INTO transactions (id, payer_id, merchant_id, amount, cashback_amount, status, payment_method, source_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.PayerID, t.MerchantID, t.Amount, t.CashbackAmount,
		t.Status, t.PaymentMethod, t.SourceToken, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	itemQuery := `INSERT INTO transaction_items (id, transaction_id, kind, account_id, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, it := range items {
		_, err := tx.Exec(ctx, itemQuery,
			it.ID, it.TransactionID, it.Kind, it.AccountID, it.Amount, it.Description,
		)
		if err != nil {
			return fmt.Errorf("insert transaction item: %w", err)
		}
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, payer_id, merchant_id, amount, cashback_amount, status, payment_method, source_token, created_at
		FROM transactions WHERE id = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetItems fetches a transaction's line items.
func (r *TransactionRepo) GetItems(ctx context.Context, transactionID uuid.UUID) ([]domain.TransactionItem, error) {
	query := `SELECT id, transaction_id, kind, account_id, amount, description
		FROM transaction_items WHERE transaction_id = $1 ORDER BY kind`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list transaction items: %w", err)
	}
	defer rows.Close()

	var items []domain.TransactionItem
	for rows.Next() {
		it := domain.TransactionItem{}
		err := rows.Scan(&it.ID, &it.TransactionID, &it.Kind, &it.AccountID, &it.Amount, &it.Description)
		if err != nil {
			return nil, fmt.Errorf("scan transaction item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction items: %w", err)
	}
	return items, nil
}

// List fetches transactions with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.PayerID != nil {
		conditions = append(conditions, fmt.Sprintf("payer_id = $%d", argIdx))
		args = append(args, *params.PayerID)
		argIdx++
	}
	if params.MerchantID != nil {
		conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
		args = append(args, *params.MerchantID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT id, payer_id, merchant_id, amount, cashback_amount, status, payment_method, source_token, created_at
		FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.PayerID, &t.MerchantID, &t.Amount, &t.CashbackAmount,
			&t.Status, &t.PaymentMethod, &t.SourceToken, &t.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// GetStats retrieves aggregated statistics for an account, matched on
// either side of the transaction.
func (r *TransactionRepo) GetStats(ctx context.Context, accountID uuid.UUID, periodStart *int64) (*ports.TransactionStats, error) {
	var args []any
	argIdx := 1

	condition := fmt.Sprintf("(payer_id = $%d OR merchant_id = $%d)", argIdx, argIdx)
	args = append(args, accountID)
	argIdx++

	if periodStart != nil {
		condition += fmt.Sprintf(" AND created_at >= to_timestamp($%d)", argIdx)
		args = append(args, *periodStart)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed,
		COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled,
		COUNT(*) FILTER (WHERE status = 'REFUNDED') AS refunded,
		COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED'), 0) AS volume,
		COALESCE(SUM(cashback_amount) FILTER (WHERE status = 'COMPLETED'), 0) AS cashback
		FROM transactions WHERE %s`, condition)

	stats := &ports.TransactionStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalTransactions, &stats.Completed, &stats.Cancelled, &stats.Refunded,
		&stats.TotalVolume, &stats.TotalCashback,
	)
	if err != nil {
		return nil, fmt.Errorf("get transaction stats: %w", err)
	}
	return stats, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.PayerID, &t.MerchantID, &t.Amount, &t.CashbackAmount,
		&t.Status, &t.PaymentMethod, &t.SourceToken, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
