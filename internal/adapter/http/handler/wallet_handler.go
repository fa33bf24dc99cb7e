package handler

import (
	"context"

	"casino-ledger/internal/adapter/http/dto"
	"casino-ledger/internal/adapter/http/middleware"
	"casino-ledger/internal/core/ports"
	"casino-ledger/pkg/apperror"
	"casino-ledger/pkg/money"
	"casino-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles balance, deposit and withdrawal endpoints.
type WalletHandler struct {
	walletSvc    ports.WalletService
	reportingSvc ports.ReportingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, reportingSvc ports.ReportingService) *WalletHandler {
	return &WalletHandler{
		walletSvc:    walletSvc,
		reportingSvc: reportingSvc,
	}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.reportingSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Balance:      money.Format(balance),
		BalanceMinor: balance,
	})
}

// Deposit handles POST /api/v1/wallet/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.move(c, h.walletSvc.Deposit)
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.move(c, h.walletSvc.Withdraw)
}

type walletOp func(ctx context.Context, userID uuid.UUID, amount int64, referenceID *string) (*ports.ApplyResult, error)

func (h *WalletHandler) move(c *gin.Context, op walletOp) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.MoneyRequest
	if !bindJSON(c, &req, apperror.Validation) {
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := op(c.Request.Context(), userID, amount, req.ReferenceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Entry.ID.String())
	middleware.AuditDetail(c, "amount", money.Format(result.Entry.Amount))
	middleware.AuditDetail(c, "balance_after", money.Format(result.Entry.BalanceAfter))
	response.Created(c, gin.H{
		"entry":   dto.NewLedgerEntryResponse(result.Entry),
		"balance": money.Format(result.Account.Balance),
	})
}
