package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited account action.
type AuditAction string

const (
	AuditActionRegister    AuditAction = "REGISTER"
	AuditActionLogin       AuditAction = "LOGIN"
	AuditActionLoginFailed AuditAction = "LOGIN_FAILED"
	AuditActionDeposit     AuditAction = "DEPOSIT"
	AuditActionWithdraw    AuditAction = "WITHDRAW"
	AuditActionRound       AuditAction = "ROUND"
)

// AuditLog records a single audited action. Written fire-and-forget; a lost
// record never rolls back the action it describes.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       *uuid.UUID  `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
