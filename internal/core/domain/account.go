package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountRole distinguishes the three portals of the platform.
type AccountRole string

const (
	RoleClient   AccountRole = "CLIENT"
	RoleMerchant AccountRole = "MERCHANT"
	RoleAdmin    AccountRole = "ADMIN"
)

// BalanceSource selects which of an account's two balances a debit is
// evaluated against. The two are never mixed within one debit.
type BalanceSource string

const (
	SourceWallet BalanceSource = "WALLET"
	SourceBonus  BalanceSource = "BONUS"
)

// AccountBalance is the per-account ledger row. All amounts are minor
// units and never negative. balance == total_earned - total_spent is
// NOT asserted: administrative adjustments can bypass the ledger.
type AccountBalance struct {
	AccountID     uuid.UUID `json:"account_id"`
	WalletBalance int64     `json:"wallet_balance"`
	BonusBalance  int64     `json:"bonus_balance"`
	TotalEarned   int64     `json:"total_earned"`
	TotalSpent    int64     `json:"total_spent"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available returns the balance of the given source.
func (b *AccountBalance) Available(source BalanceSource) int64 {
	if source == SourceBonus {
		return b.BonusBalance
	}
	return b.WalletBalance
}
