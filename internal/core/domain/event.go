package domain

import (
	"time"

	"github.com/google/uuid"
)

// SettlementEventType labels notification events emitted after a
// settlement attempt. Delivery is fire-and-forget; settlement
// correctness never depends on it.
type SettlementEventType string

const (
	EventSettlementCompleted SettlementEventType = "SETTLEMENT_COMPLETED"
	EventSettlementFailed    SettlementEventType = "SETTLEMENT_FAILED"
)

// SettlementEvent is the payload published to the notification
// dispatcher.
type SettlementEvent struct {
	Type          SettlementEventType `json:"type"`
	TransactionID *uuid.UUID          `json:"transaction_id,omitempty"`
	TokenCode     string              `json:"token_code"`
	PayerID       uuid.UUID           `json:"payer_id"`
	MerchantID    uuid.UUID           `json:"merchant_id"`
	Amount        int64               `json:"amount"`
	Reason        string              `json:"reason,omitempty"` // set on failures
	OccurredAt    time.Time           `json:"occurred_at"`
}
