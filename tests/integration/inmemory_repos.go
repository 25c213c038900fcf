package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The in-memory store mimics the two properties the services lean on:
// transactions serialize (one global lock held from Begin to
// Commit/Rollback) and a rolled-back unit undoes its writes (each
// write appends an undo closure to the journal). This keeps the
// concurrency tests exact instead of merely "never negative".

// --- In-Memory Transactor ---

type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: t.mu.Unlock}, nil
}

// memTx journals undo closures for every write made through it.
type memTx struct {
	noopTx
	release func()
	undo    []func()
	done    bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.release()
	return nil
}

func journal(tx pgx.Tx, undo func()) {
	if m, ok := tx.(*memTx); ok {
		m.undo = append(m.undo, undo)
	}
}

// --- In-Memory Token Repo ---

type inMemoryTokenRepo struct {
	mu     sync.RWMutex
	tokens map[string]*domain.PaymentToken
}

func newInMemoryTokenRepo() *inMemoryTokenRepo {
	return &inMemoryTokenRepo{tokens: make(map[string]*domain.PaymentToken)}
}

func (r *inMemoryTokenRepo) Create(ctx context.Context, token *domain.PaymentToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.Code]; ok {
		return fmt.Errorf("token code already exists")
	}
	cp := *token
	r.tokens[token.Code] = &cp
	return nil
}

func (r *inMemoryTokenRepo) GetByCode(ctx context.Context, code string) (*domain.PaymentToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[code]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTokenRepo) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.PaymentToken, error) {
	return r.GetByCode(ctx, code)
}

func (r *inMemoryTokenRepo) MarkUsed(ctx context.Context, tx pgx.Tx, code string, usedBy uuid.UUID, usedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[code]
	if !ok || t.Status != domain.TokenStatusActive || !t.ExpiresAt.After(usedAt) {
		return false, nil
	}
	prev := *t
	t.Status = domain.TokenStatusUsed
	by := usedBy
	at := usedAt
	t.UsedBy = &by
	t.UsedAt = &at
	journal(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		*r.tokens[code] = prev
	})
	return true, nil
}

func (r *inMemoryTokenRepo) MarkExpired(ctx context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[code]
	if !ok || t.Status != domain.TokenStatusActive || t.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	t.Status = domain.TokenStatusExpired
	return true, nil
}

func (r *inMemoryTokenRepo) Cancel(ctx context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[code]
	if !ok || t.Status != domain.TokenStatusActive || !t.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	t.Status = domain.TokenStatusCancelled
	return true, nil
}

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	balances map[uuid.UUID]*domain.AccountBalance
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{balances: make(map[uuid.UUID]*domain.AccountBalance)}
}

func (r *inMemoryAccountRepo) CreateBalance(ctx context.Context, balance *domain.AccountBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *balance
	r.balances[balance.AccountID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.AccountBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.balances[accountID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.AccountBalance, error) {
	return r.GetBalance(ctx, accountID)
}

func (r *inMemoryAccountRepo) Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, source domain.BalanceSource, amount int64, earning bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return fmt.Errorf("account balance not found")
	}
	prev := *b
	if source == domain.SourceBonus {
		b.BonusBalance += amount
	} else {
		b.WalletBalance += amount
	}
	if earning {
		b.TotalEarned += amount
	}
	journal(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		*r.balances[accountID] = prev
	})
	return nil
}

func (r *inMemoryAccountRepo) Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, source domain.BalanceSource, amount int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return false, fmt.Errorf("account balance not found")
	}
	if b.Available(source) < amount {
		return false, nil
	}
	prev := *b
	if source == domain.SourceBonus {
		b.BonusBalance -= amount
	} else {
		b.WalletBalance -= amount
	}
	b.TotalSpent += amount
	journal(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		*r.balances[accountID] = prev
	})
	return true, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
	items        map[uuid.UUID][]domain.TransactionItem
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{
		transactions: make(map[uuid.UUID]*domain.Transaction),
		items:        make(map[uuid.UUID][]domain.TransactionItem),
	}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction, items []domain.TransactionItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *txn
	r.transactions[txn.ID] = &cp
	r.items[txn.ID] = append([]domain.TransactionItem(nil), items...)
	id := txn.ID
	journal(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.transactions, id)
		delete(r.items, id)
	})
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetItems(ctx context.Context, transactionID uuid.UUID) ([]domain.TransactionItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.TransactionItem(nil), r.items[transactionID]...), nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if params.PayerID != nil && t.PayerID != *params.PayerID {
			continue
		}
		if params.MerchantID != nil && t.MerchantID != *params.MerchantID {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		if params.From != nil && t.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && t.CreatedAt.Unix() > *params.To {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryTransactionRepo) GetStats(ctx context.Context, accountID uuid.UUID, periodStart *int64) (*ports.TransactionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.TransactionStats{}
	for _, t := range r.transactions {
		if t.PayerID != accountID && t.MerchantID != accountID {
			continue
		}
		if periodStart != nil && t.CreatedAt.Unix() < *periodStart {
			continue
		}
		stats.TotalTransactions++
		switch t.Status {
		case domain.TransactionStatusCompleted:
			stats.Completed++
			stats.TotalVolume += t.Amount
			stats.TotalCashback += t.CashbackAmount
		case domain.TransactionStatusCancelled:
			stats.Cancelled++
		case domain.TransactionStatusRefunded:
			stats.Refunded++
		}
	}
	return stats, nil
}

// --- In-Memory Referral Repo ---

type inMemoryReferralRepo struct {
	mu        sync.RWMutex
	referrals map[uuid.UUID]*domain.Referral // keyed by referred account
}

func newInMemoryReferralRepo() *inMemoryReferralRepo {
	return &inMemoryReferralRepo{referrals: make(map[uuid.UUID]*domain.Referral)}
}

func (r *inMemoryReferralRepo) Create(ctx context.Context, tx pgx.Tx, referral *domain.Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.referrals[referral.ReferredID]; ok {
		return fmt.Errorf("referral already exists")
	}
	cp := *referral
	r.referrals[referral.ReferredID] = &cp
	id := referral.ReferredID
	journal(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.referrals, id)
	})
	return nil
}

func (r *inMemoryReferralRepo) GetByReferred(ctx context.Context, referredID uuid.UUID) (*domain.Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.referrals[referredID]
	if !ok {
		return nil, nil
	}
	cp := *ref
	return &cp, nil
}

func (r *inMemoryReferralRepo) ClaimActivationBonus(ctx context.Context, tx pgx.Tx, referredID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.referrals[referredID]
	if !ok || ref.BonusClaimed {
		return false, nil
	}
	ref.BonusClaimed = true
	journal(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.referrals[referredID]; ok {
			cur.BonusClaimed = false
		}
	})
	return true, nil
}

// --- In-Memory Rate Repo ---

type inMemoryRateRepo struct {
	snapshot domain.RateSnapshot
}

func newInMemoryRateRepo(snapshot domain.RateSnapshot) *inMemoryRateRepo {
	return &inMemoryRateRepo{snapshot: snapshot}
}

func (r *inMemoryRateRepo) GetCurrent(ctx context.Context) (*domain.RateSnapshot, error) {
	cp := r.snapshot
	return &cp, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
