package handler

import (
	"casino-ledger/internal/adapter/http/dto"
	"casino-ledger/internal/adapter/http/middleware"
	"casino-ledger/internal/core/baccarat"
	"casino-ledger/internal/core/ports"
	"casino-ledger/pkg/apperror"
	"casino-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// BaccaratHandler handles baccarat round endpoints.
type BaccaratHandler struct {
	baccaratSvc ports.BaccaratService
}

// NewBaccaratHandler creates a new BaccaratHandler.
func NewBaccaratHandler(baccaratSvc ports.BaccaratService) *BaccaratHandler {
	return &BaccaratHandler{baccaratSvc: baccaratSvc}
}

// Play handles POST /api/v1/baccarat/rounds.
func (h *BaccaratHandler) Play(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.BetRequest
	if !bindJSON(c, &req, apperror.ErrInvalidBet) {
		return
	}

	bet, err := toBet(req)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	outcome, err := h.baccaratSvc.Play(c.Request.Context(), userID, bet)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, outcome.RoundID.String())
	middleware.AuditDetail(c, "net_minor", outcome.Settlement.Net())
	middleware.AuditDetail(c, "risk", outcome.Risk.Level)
	response.Created(c, dto.NewRoundResponse(outcome))
}

// ActiveGame handles GET /api/v1/baccarat/active.
func (h *BaccaratHandler) ActiveGame(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	game, err := h.baccaratSvc.ActiveGame(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, game)
}

func toBet(req dto.BetRequest) (baccarat.Bet, error) {
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		return baccarat.Bet{}, err
	}
	playerPair, err := dto.ParseAmount(req.PlayerPair)
	if err != nil {
		return baccarat.Bet{}, err
	}
	bankerPair, err := dto.ParseAmount(req.BankerPair)
	if err != nil {
		return baccarat.Bet{}, err
	}
	return baccarat.Bet{
		Side:       baccarat.Side(req.Side),
		Amount:     amount,
		PlayerPair: playerPair,
		BankerPair: bankerPair,
	}, nil
}
