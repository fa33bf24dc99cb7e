package middleware

import (
"encoding/json"
"net/http"
"time"

"casino-ledger/internal/core/domain"
"casino-ledger/internal/core/ports"

"github.com/gin-gonic/gin"
"github.com/google/uuid"
)

type auditTarget struct {
action       domain.AuditAction
resourceType string
// failedAction, when set, audits rejected attempts at the route too.
failedAction domain.AuditAction
}

// auditedRoutes is keyed by method and gin route pattern.
var auditedRoutes = map[string]auditTarget{
"POST /api/v1/auth/register": {action: domain.AuditActionRegister, resourceType: "account"},
"POST /api/v1/auth/login":    {action: domain.AuditActionLogin, resourceType: "session", failedAction: domain.AuditActionLoginFailed},
"POST /api/v1/wallet/deposit":  {action: domain.AuditActionDeposit, resourceType: "ledger_entry"},
"POST /api/v1/wallet/withdraw": {action: domain.AuditActionWithdraw, resourceType: "ledger_entry"},
"POST /api/v1/baccarat/rounds":  {action: domain.AuditActionRound, resourceType: "round"},
}

// AuditDetail attaches a key to the audit record written for this request.
func AuditDetail(c *gin.Context, key string, value interface{}) {
details, _ := c.Get(CtxAuditDetails)
m, ok := details.(map[string]interface{})
if !ok {
m = make(map[string]interface{})
c.Set(CtxAuditDetails, m)
}
m[key] = value
}

// AuditLog records money movements and session events after the handler
// runs. Successful calls are always recorded; rejected ones only on routes
// with a failed action (bad credentials on login).
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
return func(c *gin.Context) {
c.Next()

action, resourceType, ok := auditActionFor(c.Request.Method, c.FullPath(), c.Writer.Status())
if !ok {
return
}

var userID *uuid.UUID
if id, ok := UserID(c); ok {
userID = &id
}

details := map[string]interface{}{
"status":     c.Writer.Status(),
"request_id": c.GetString(CtxRequestID),
}
if extra, ok := c.Get(CtxAuditDetails); ok {
if m, ok := extra.(map[string]interface{}); ok {
for k, v := range m {
details[k] = v
}
}
}
raw, _ := json.Marshal(details)

auditSvc.Log(c.Request.Context(), &domain.AuditLog{
ID:           uuid.New(),
UserID:       userID,
Action:       action,
ResourceType: resourceType,
ResourceID:   c.GetString(CtxResourceID),
IPAddress:    c.ClientIP(),
Details:      string(raw),
CreatedAt:    time.Now().UTC(),
})
}
}

func auditActionFor(method, route string, status int) (domain.AuditAction, string, bool) {
target, ok := auditedRoutes[method+" "+route]
if !ok {
return "", "", false
}
switch {
case status >= 200 && status < 300:
return target.action, target.resourceType, true
case target.failedAction != "" && (status == http.StatusUnauthorized || status == http.StatusForbidden):
return target.failedAction, target.resourceType, true
}
return "", "", false
}
