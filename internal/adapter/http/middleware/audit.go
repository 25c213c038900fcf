package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and paths to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		var accountID *uuid.UUID
		if aid, exists := c.Get(CtxAccountID); exists {
			if id, ok := aid.(uuid.UUID); ok {
				accountID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			AccountID:    accountID,
			Action:       action,
			ResourceType: resourceType,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/tokens" && method == "POST":
		return domain.AuditActionIssueToken, "token"
	case strings.HasPrefix(path, "/api/v1/tokens/") && method == "DELETE":
		return domain.AuditActionCancelToken, "token"
	case path == "/api/v1/payments" && method == "POST":
		return domain.AuditActionSettle, "transaction"
	case path == "/api/v1/referrals" && method == "POST":
		return domain.AuditActionLinkReferral, "referral"
	}
	return "", ""
}
