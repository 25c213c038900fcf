package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenStatus represents the lifecycle state of a payment token.
// ACTIVE is the only non-terminal state.
type TokenStatus string

const (
	TokenStatusActive    TokenStatus = "ACTIVE"
	TokenStatusUsed      TokenStatus = "USED"
	TokenStatusExpired   TokenStatus = "EXPIRED"
	TokenStatusCancelled TokenStatus = "CANCELLED"
)

// PaymentToken is a single-use, time-bounded payment request issued by
// a merchant and presented to the payer as a QR code. Tokens are never
// deleted; terminal statuses keep them for audit.
type PaymentToken struct {
	ID          uuid.UUID   `json:"id"`
	Code        string      `json:"code"`
	IssuerID    uuid.UUID   `json:"issuer_id"`
	Amount      int64       `json:"amount"` // minor units
	Description string      `json:"description,omitempty"`
	Status      TokenStatus `json:"status"`
	IssuedAt    time.Time   `json:"issued_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	UsedBy      *uuid.UUID  `json:"used_by,omitempty"`
	UsedAt      *time.Time  `json:"used_at,omitempty"`
}

// IsExpired reports whether the token's deadline has passed. Expiry is
// derived from the clock, not the stored status: a row can still say
// ACTIVE after the deadline.
func (t *PaymentToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// EffectiveStatus returns the status a reader should observe at the
// given instant, folding lazy expiry into the stored state.
func (t *PaymentToken) EffectiveStatus(now time.Time) TokenStatus {
	if t.Status == TokenStatusActive && t.IsExpired(now) {
		return TokenStatusExpired
	}
	return t.Status
}
