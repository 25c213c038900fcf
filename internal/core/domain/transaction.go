package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the final state of a settlement.
// Transactions are immutable once created; a correction is a new
// transaction, never a mutation of amounts.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

// ItemKind labels a double-entry line item.
type ItemKind string

const (
	ItemPayerDebit     ItemKind = "PAYER_DEBIT"
	ItemMerchantCredit ItemKind = "MERCHANT_CREDIT"
	ItemPayerCashback  ItemKind = "PAYER_CASHBACK"
	ItemReferralBonus  ItemKind = "REFERRAL_BONUS"
	ItemPlatformFee    ItemKind = "PLATFORM_FEE"
)

// Transaction records one settled payment.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	PayerID        uuid.UUID         `json:"payer_id"`
	MerchantID     uuid.UUID         `json:"merchant_id"`
	Amount         int64             `json:"amount"` // minor units
	CashbackAmount int64             `json:"cashback_amount"`
	Status         TransactionStatus `json:"status"`
	PaymentMethod  string            `json:"payment_method"`
	SourceToken    *string           `json:"source_token,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// TransactionItem is one leg of a transaction's double entry.
// Debits are negative, credits positive.
type TransactionItem struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Kind          ItemKind  `json:"kind"`
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"` // signed minor units
	Description   string    `json:"description,omitempty"`
}

// ItemsBalance sums the signed amounts of a transaction's line items.
// A committed transaction's items must sum to zero.
func ItemsBalance(items []TransactionItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Amount
	}
	return sum
}
