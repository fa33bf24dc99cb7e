package dto

import (
"time"

"casino-ledger/internal/core/domain"
"casino-ledger/internal/core/ports"
"casino-ledger/pkg/money"
)

// Amounts cross the HTTP boundary as decimal strings ("12.50") and are
// converted to int64 minor units before reaching the core.

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
Username string `json:"username" binding:"required"`
Password string `json:"password" binding:"required" sanitize:"-"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
Token  string `json:"token"`
Expiry int64  `json:"expiry"` // Unix timestamp
}

// MoneyRequest is the request body for deposits and withdrawals.
type MoneyRequest struct {
Amount      string  `json:"amount" binding:"required,money"`
ReferenceID *string `json:"reference_id,omitempty" binding:"omitempty,max=100,safe_id"`
}

// BetRequest is the request body for a baccarat round.
type BetRequest struct {
Side       string `json:"side" binding:"required,oneof=PLAYER BANKER TIE"`
Amount     string `json:"amount" binding:"required,money"`
PlayerPair string `json:"player_pair,omitempty" binding:"omitempty,money"`
BankerPair string `json:"banker_pair,omitempty" binding:"omitempty,money"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
ID               string             `json:"id"`
Username         string             `json:"username"`
Balance          string             `json:"balance"`
TotalDeposits    string             `json:"total_deposits"`
SessionProfit    string             `json:"session_profit"`
SessionTotalBets string             `json:"session_total_bets"`
ConsecutiveWins  int                `json:"consecutive_wins"`
ConsecutiveLoss  int                `json:"consecutive_losses"`
LastBetResult    string             `json:"last_bet_result"`
ActiveGame       domain.ActiveGame  `json:"active_game"`
LastGamePlayed   *domain.GameType   `json:"last_game_played,omitempty"`
Status           string             `json:"status"`
CreatedAt        string             `json:"created_at"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
Balance      string `json:"balance"`
BalanceMinor int64  `json:"balance_minor"`
}

// LedgerEntryResponse is one hash-chained ledger entry.
type LedgerEntryResponse struct {
ID            string  `json:"id"`
Seq           int64   `json:"seq"`
Type          string  `json:"type"`
Amount        string  `json:"amount"`
BalanceAfter  string  `json:"balance_after"`
Game          string  `json:"game"`
ReferenceID   *string `json:"reference_id,omitempty"`
PrevHash      string  `json:"prev_hash"`
IntegrityHash string  `json:"integrity_hash"`
CreatedAt     string  `json:"created_at"`
}

// LedgerListResponse wraps a paginated ledger listing.
type LedgerListResponse struct {
Items      []LedgerEntryResponse `json:"items"`
Total      int64                 `json:"total"`
Page       int                   `json:"page"`
PageSize   int                   `json:"page_size"`
TotalPages int                   `json:"total_pages"`
}

// RoundResponse is the settled outcome of a baccarat round.
type RoundResponse struct {
RoundID  string                `json:"round_id"`
Result   interface{}           `json:"result"`
Stake    string                `json:"stake"`
Payout   string                `json:"payout"`
Net      string                `json:"net"`
Push     bool                  `json:"push"`
Risk     domain.RiskAssessment `json:"risk"`
Balance  string                `json:"balance"`
SeedHash string                `json:"seed_hash"`
Seed     string                `json:"seed"`
}

// GameLogResponse is one completed round in the player's history.
type GameLogResponse struct {
ID        string      `json:"id"`
Game      string      `json:"game"`
RoundID   string      `json:"round_id"`
Bet       string      `json:"bet"`
Payout    string      `json:"payout"`
Profit    string      `json:"profit"`
Result    interface{} `json:"result"`
RiskLevel string      `json:"risk_level"`
CreatedAt string      `json:"created_at"`
}

// NewAccountResponse renders an account for the owning player.
func NewAccountResponse(a *domain.Account) AccountResponse {
return AccountResponse{
ID:               a.ID.String(),
Username:         a.Username,
Balance:          money.Format(a.Balance),
TotalDeposits:    money.Format(a.TotalDeposits),
SessionProfit:    money.Format(a.SessionProfit),
SessionTotalBets: money.Format(a.SessionTotalBets),
ConsecutiveWins:  a.ConsecutiveWins,
ConsecutiveLoss:  a.ConsecutiveLosses,
LastBetResult:    string(a.LastBetResult),
ActiveGame:       a.ActiveGame.Public(),
LastGamePlayed:   a.LastGamePlayed,
Status:           string(a.Status),
CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
}
}

// NewLedgerEntryResponse renders a ledger entry.
func NewLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
return LedgerEntryResponse{
ID:            e.ID.String(),
Seq:           e.Seq,
Type:          string(e.Type),
Amount:        money.Format(e.Amount),
BalanceAfter:  money.Format(e.BalanceAfter),
Game:          string(e.Game),
ReferenceID:   e.ReferenceID,
PrevHash:      e.PrevHash,
IntegrityHash: e.IntegrityHash,
CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339Nano),
}
}

// NewRoundResponse renders a settled round.
func NewRoundResponse(o *ports.RoundOutcome) RoundResponse {
return RoundResponse{
RoundID:  o.RoundID.String(),
Result:   o.Result,
Stake:    money.Format(o.Settlement.Stake),
Payout:   money.Format(o.Settlement.Payout),
Net:      money.Format(o.Settlement.Net()),
Push:     o.Settlement.Push,
Risk:     o.Risk,
Balance:  money.Format(o.Balance),
SeedHash: o.SeedHash,
Seed:     o.Seed,
}
}

// NewGameLogResponse renders a game log. The risk adjustment tag stays internal.
func NewGameLogResponse(l *domain.GameLog) GameLogResponse {
return GameLogResponse{
ID:        l.ID.String(),
Game:      string(l.Game),
RoundID:   l.RoundID.String(),
Bet:       money.Format(l.Bet),
Payout:    money.Format(l.Payout),
Profit:    money.Format(l.Profit),
Result:    l.Result,
RiskLevel: string(l.RiskLevel),
CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
}
}
