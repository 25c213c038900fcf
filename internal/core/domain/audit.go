package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies an audited operation.
type AuditAction string

const (
	AuditActionIssueToken   AuditAction = "TOKEN_ISSUED"
	AuditActionCancelToken  AuditAction = "TOKEN_CANCELLED"
	AuditActionSettle       AuditAction = "PAYMENT_SETTLED"
	AuditActionLinkReferral AuditAction = "REFERRAL_LINKED"
)

// AuditLog records a successful write operation for the admin portal's
// audit trail. Written best-effort, off the settlement path.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	AccountID    *uuid.UUID  `json:"account_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	IPAddress    string      `json:"ip_address"`
	Details      string      `json:"details"` // JSON blob
	CreatedAt    time.Time   `json:"created_at"`
}
