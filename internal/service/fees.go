package service

import (
	"cashback-platform/internal/core/domain"
	"cashback-platform/pkg/money"
)

// ComputeFees computes the fee/cashback/commission breakdown for one
// settlement. Pure: it reads only its arguments, so a live rate change
// can never alter an in-flight computation.
//
// Each component is rounded half-up independently. ReferralBonus is
// computed unconditionally; whether it is materialized as a ledger
// credit depends on the payer having a referrer, which the settlement
// unit decides. PlatformNet assumes the bonus IS materialized — when it
// is not, the settlement adds the bonus back to the platform's line.
func ComputeFees(amount int64, rates domain.RateSnapshot) domain.FeeBreakdown {
	cashback := money.ApplyRate(amount, rates.ClientCashbackBps)
	fee := money.ApplyRate(amount, rates.PlatformFeeBps)
	bonus := money.ApplyRate(amount, rates.ReferralBonusBps)

	return domain.FeeBreakdown{
		ClientCashback: cashback,
		PlatformFee:    fee,
		ReferralBonus:  bonus,
		MerchantNet:    amount - fee,
		PlatformNet:    fee - cashback - bonus,
	}
}
