package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateUsername is returned by account stores when the username is taken.
var ErrDuplicateUsername = errors.New("username already exists")

// BetResult records the outcome of the most recent wager.
type BetResult string

const (
	BetResultNone BetResult = "NONE"
	BetResultWin  BetResult = "WIN"
	BetResultLoss BetResult = "LOSS"
)

// AccountStatus is a soft lifecycle state; accounts are never hard-deleted.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusClosed    AccountStatus = "CLOSED"
)

// Account is a player's balance plus the session counters the risk engine reads.
// All money fields are minor units (1/100 of the display currency).
type Account struct {
	ID                uuid.UUID     `json:"id"`
	Username          string        `json:"username"`
	PasswordHash      string        `json:"-"`
	Balance           int64         `json:"balance"`
	TotalDeposits     int64         `json:"total_deposits"`
	SessionProfit     int64         `json:"session_profit"`
	SessionTotalBets  int64         `json:"session_total_bets"`
	ConsecutiveWins   int           `json:"consecutive_wins"`
	ConsecutiveLosses int           `json:"consecutive_losses"`
	LastBetResult     BetResult     `json:"last_bet_result"`
	PreviousBet       int64         `json:"previous_bet"`
	ActiveGame        ActiveGame    `json:"active_game"`
	LastGamePlayed    *GameType     `json:"last_game_played,omitempty"`
	Status            AccountStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// IsActive returns true if the account may wager and move money.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// NewAccount returns a freshly registered account with a zero balance.
func NewAccount(username, passwordHash string) *Account {
	return &Account{
		ID:            uuid.New(),
		Username:      username,
		PasswordHash:  passwordHash,
		LastBetResult: BetResultNone,
		ActiveGame:    NoActiveGame(),
		Status:        AccountStatusActive,
	}
}

// AccountMutation is a single conditional update against an account row.
// Zero-valued fields leave the corresponding column untouched.
type AccountMutation struct {
	UserID       uuid.UUID
	BalanceDelta int64
	// MinBalance is the precondition balance >= MinBalance; zero means unconditional.
	MinBalance   int64
	DepositDelta int64
	ProfitDelta  int64
	BetDelta     int64

	ResetSession bool
	Win          bool
	Loss         bool
	PreviousBet  *int64

	LastGamePlayed  *GameType
	SetActiveGame   *ActiveGame
	ClearActiveGame bool
}
