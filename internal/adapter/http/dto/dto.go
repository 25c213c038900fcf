package dto

// IssueTokenRequest is the request body for token issuance.
type IssueTokenRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"max=255"`
}

// TokenResponse is the response body for token operations.
type TokenResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Amount      int64   `json:"amount"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	IssuedAt    string  `json:"issued_at"`
	ExpiresAt   string  `json:"expires_at"`
	QRImage     string  `json:"qr_image,omitempty"` // base64 PNG
	UsedBy      *string `json:"used_by,omitempty"`
	UsedAt      *string `json:"used_at,omitempty"`
}

// SettleRequest is the request body for paying a token.
type SettleRequest struct {
	Code   string `json:"code" binding:"required,len=32,safe_id"`
	Source string `json:"source" binding:"required,oneof=WALLET BONUS"`
}

// SettlementResponse is the response body for a completed settlement.
type SettlementResponse struct {
	Transaction TransactionResponse  `json:"transaction"`
	Items       []ItemResponse       `json:"items"`
	Fees        FeeBreakdownResponse `json:"fees"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID             string  `json:"id"`
	PayerID        string  `json:"payer_id"`
	MerchantID     string  `json:"merchant_id"`
	Amount         int64   `json:"amount"`
	CashbackAmount int64   `json:"cashback_amount"`
	Status         string  `json:"status"`
	PaymentMethod  string  `json:"payment_method"`
	SourceToken    *string `json:"source_token,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ItemResponse is one double-entry leg of a transaction.
type ItemResponse struct {
	Kind        string `json:"kind"`
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
}

// FeeBreakdownResponse mirrors the settlement calculator's output.
type FeeBreakdownResponse struct {
	ClientCashback int64 `json:"client_cashback"`
	PlatformFee    int64 `json:"platform_fee"`
	ReferralBonus  int64 `json:"referral_bonus"`
	MerchantNet    int64 `json:"merchant_net"`
}

// LinkReferralRequest is the request body for linking a referral.
type LinkReferralRequest struct {
	ReferredID string `json:"referred_id" binding:"required,uuid"`
}

// ReferralResponse is the response body for a referral link.
type ReferralResponse struct {
	ID           string `json:"id"`
	ReferrerID   string `json:"referrer_id"`
	ReferredID   string `json:"referred_id"`
	BonusClaimed bool   `json:"bonus_claimed"`
	CreatedAt    string `json:"created_at"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	AccountID     string `json:"account_id"`
	WalletBalance int64  `json:"wallet_balance"`
	BonusBalance  int64  `json:"bonus_balance"`
	TotalEarned   int64  `json:"total_earned"`
	TotalSpent    int64  `json:"total_spent"`
}

// DashboardStatsResponse is the response for dashboard statistics.
type DashboardStatsResponse struct {
	TotalTransactions int64 `json:"total_transactions"`
	Completed         int64 `json:"completed"`
	Cancelled         int64 `json:"cancelled"`
	Refunded          int64 `json:"refunded"`
	TotalVolume       int64 `json:"total_volume"`
	TotalCashback     int64 `json:"total_cashback"`
}

// TransactionListResponse wraps paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}
