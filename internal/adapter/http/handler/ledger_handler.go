package handler

import (
"math"
"strconv"

"casino-ledger/internal/adapter/http/dto"
"casino-ledger/internal/adapter/http/middleware"
"casino-ledger/internal/core/domain"
"casino-ledger/internal/core/ports"
"casino-ledger/pkg/apperror"
"casino-ledger/pkg/response"

"github.com/gin-gonic/gin"
)

// LedgerHandler handles account, ledger history and chain verification endpoints.
type LedgerHandler struct {
reportingSvc ports.ReportingService
gameLogSvc   ports.GameLogService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reportingSvc ports.ReportingService, gameLogSvc ports.GameLogService) *LedgerHandler {
return &LedgerHandler{reportingSvc: reportingSvc, gameLogSvc: gameLogSvc}
}

// GetAccount handles GET /api/v1/account.
func (h *LedgerHandler) GetAccount(c *gin.Context) {
userID, ok := middleware.UserID(c)
if !ok {
response.Error(c, apperror.ErrInvalidToken())
return
}

account, err := h.reportingSvc.GetAccount(c.Request.Context(), userID)
if err != nil {
response.Error(c, err)
return
}

response.OK(c, dto.NewAccountResponse(account))
}

// ListEntries handles GET /api/v1/ledger/entries.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
userID, ok := middleware.UserID(c)
if !ok {
response.Error(c, apperror.ErrInvalidToken())
return
}

page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
if page < 1 {
page = 1
}
if pageSize < 1 || pageSize > 100 {
pageSize = 20
}

params := ports.LedgerListParams{
UserID:   userID,
Page:     page,
PageSize: pageSize,
}
if t := c.Query("type"); t != "" {
txType := domain.TransactionType(t)
params.Type = &txType
}

entries, total, err := h.reportingSvc.ListEntries(c.Request.Context(), params)
if err != nil {
response.Error(c, err)
return
}

items := make([]dto.LedgerEntryResponse, 0, len(entries))
for i := range entries {
items = append(items, dto.NewLedgerEntryResponse(&entries[i]))
}

totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

response.OK(c, dto.LedgerListResponse{
Items:      items,
Total:      total,
Page:       page,
PageSize:   pageSize,
TotalPages: totalPages,
})
}

// VerifyChain handles GET /api/v1/ledger/verify.
func (h *LedgerHandler) VerifyChain(c *gin.Context) {
userID, ok := middleware.UserID(c)
if !ok {
response.Error(c, apperror.ErrInvalidToken())
return
}

report, err := h.reportingSvc.VerifyChain(c.Request.Context(), userID)
if err != nil {
response.Error(c, err)
return
}

response.OK(c, report)
}

// ListGameLogs handles GET /api/v1/games/logs.
func (h *LedgerHandler) ListGameLogs(c *gin.Context) {
userID, ok := middleware.UserID(c)
if !ok {
response.Error(c, apperror.ErrInvalidToken())
return
}

limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
logs, err := h.gameLogSvc.List(c.Request.Context(), userID, limit)
if err != nil {
response.Error(c, err)
return
}

items := make([]dto.GameLogResponse, 0, len(logs))
for i := range logs {
items = append(items, dto.NewGameLogResponse(&logs[i]))
}
response.OK(c, items)
}
