package domain

import (
	"time"

	"github.com/google/uuid"
)

// Referral links a referred account to its direct referrer. Bonus
// attribution is single-level only: a settlement never walks further
// up the chain.
type Referral struct {
	ID           uuid.UUID `json:"id"`
	ReferrerID   uuid.UUID `json:"referrer_id"`
	ReferredID   uuid.UUID `json:"referred_id"`
	BonusClaimed bool      `json:"bonus_claimed"` // one-time activation bonus
	CreatedAt    time.Time `json:"created_at"`
}
