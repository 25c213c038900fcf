package ports

import (
	"context"

	"cashback-platform/internal/core/domain"

	"github.com/google/uuid"
)

// --- Service Ports (Business Logic) ---

// TokenService manages the payment token lifecycle outside settlement.
type TokenService interface {
	Issue(ctx context.Context, req IssueTokenRequest) (*IssuedToken, error)
	Validate(ctx context.Context, code string) (*domain.PaymentToken, error)
	Cancel(ctx context.Context, code string, callerID uuid.UUID) (*domain.PaymentToken, error)
}

// IssueTokenRequest holds validated input for token issuance.
type IssueTokenRequest struct {
	IssuerID    uuid.UUID
	Amount      int64 // minor units
	Description string
}

// IssuedToken pairs a fresh token with its QR rendering.
type IssuedToken struct {
	Token   *domain.PaymentToken
	QRImage string // base64 PNG of the token code
}

// SettlementService executes the atomic settlement unit.
type SettlementService interface {
	SettlePayment(ctx context.Context, req SettleRequest) (*SettlementResult, error)
}

// SettleRequest holds validated input for settling a payment token.
type SettleRequest struct {
	Code       string
	ConsumerID uuid.UUID
	Source     domain.BalanceSource
	ClientIP   string
}

// SettlementResult is the outcome of a committed settlement.
type SettlementResult struct {
	Transaction *domain.Transaction
	Items       []domain.TransactionItem
	Fees        domain.FeeBreakdown
}

// ReferralService links accounts and pays the one-time activation
// bonus. Distinct from the per-transaction referral bonus, which lives
// inside the settlement unit.
type ReferralService interface {
	LinkReferral(ctx context.Context, referrerID, referredID uuid.UUID) (*domain.Referral, error)
}

// ReportingService serves the read side for the portals.
type ReportingService interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, []domain.TransactionItem, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetDashboardStats(ctx context.Context, accountID uuid.UUID, period string) (*TransactionStats, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.AccountBalance, error)
}

// SessionVerifier validates the session token minted by the external
// identity provider. The core trusts its claims and does not
// re-authenticate.
type SessionVerifier interface {
	Validate(tokenString string) (*SessionClaims, error)
}

// SessionClaims holds the parsed session claims.
type SessionClaims struct {
	AccountID uuid.UUID
	Role      domain.AccountRole
}

// NotificationDispatcher publishes settlement events. Fire-and-forget:
// errors are logged, never propagated into the settlement outcome.
type NotificationDispatcher interface {
	Publish(ctx context.Context, event domain.SettlementEvent) error
}

// AuditService records audit entries asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
