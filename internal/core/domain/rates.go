package domain

import "time"

// RateSnapshot is an immutable view of the commission configuration,
// read once per settlement and held fixed for that transaction's
// lifetime. All rates are basis points (500 = 5.00%).
type RateSnapshot struct {
	PlatformFeeBps        int64     `json:"platform_fee_bps"`
	MerchantCommissionBps int64     `json:"merchant_commission_bps"`
	ClientCashbackBps     int64     `json:"client_cashback_bps"`
	ReferralBonusBps      int64     `json:"referral_bonus_bps"`
	MinWithdrawal         int64     `json:"min_withdrawal"` // minor units
	EffectiveAt           time.Time `json:"effective_at"`
}

// FeeBreakdown is the output of the settlement calculator. All values
// are minor units. PlatformNet is the residual that keeps the double
// entry exact; it can be negative under misconfigured rates.
type FeeBreakdown struct {
	ClientCashback int64 `json:"client_cashback"`
	PlatformFee    int64 `json:"platform_fee"`
	ReferralBonus  int64 `json:"referral_bonus"`
	MerchantNet    int64 `json:"merchant_net"`
	PlatformNet    int64 `json:"platform_net"`
}
