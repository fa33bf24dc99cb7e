package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameType tags ledger entries and identifies the active round kind.
type GameType string

const (
	GameTypeNone     GameType = "NONE"
	GameTypeWallet   GameType = "WALLET"
	GameTypeBaccarat GameType = "BACCARAT"
)

// ActiveGame is the in-progress round embedded in an account. It is replaced
// wholesale on every snapshot.
type ActiveGame struct {
	Type     GameType         `json:"type"`
	RoundID  *uuid.UUID       `json:"round_id,omitempty"`
	Bet      int64            `json:"bet,omitempty"`
	SideBets map[string]int64 `json:"side_bets,omitempty"`
	Progress json.RawMessage  `json:"progress,omitempty"`

	// Hidden from the account holder; see Public.
	ShoeSeedEnc string `json:"shoe_seed_enc,omitempty"`
	SeedHash    string `json:"seed_hash,omitempty"`

	StartedAt *time.Time `json:"started_at,omitempty"`
}

// NoActiveGame is the reset sentinel.
func NoActiveGame() ActiveGame {
	return ActiveGame{Type: GameTypeNone}
}

// IsNone reports whether no round is in progress.
func (g ActiveGame) IsNone() bool {
	return g.Type == "" || g.Type == GameTypeNone
}

// Public returns a copy safe to return to the player. The seed commitment
// stays visible so the round can be verified after it ends.
func (g ActiveGame) Public() ActiveGame {
	g.ShoeSeedEnc = ""
	return g
}

// RiskLevel is the advisory classification attached to a wager.
type RiskLevel string

const (
	RiskLevelNormal  RiskLevel = "NORMAL"
	RiskLevelHigh    RiskLevel = "HIGH"
	RiskLevelExtreme RiskLevel = "EXTREME"
)

// RiskTrigger names the behavioral signal that raised the level.
type RiskTrigger string

const (
	TriggerHighExposure RiskTrigger = "HIGH_EXPOSURE"
	TriggerProfitCap    RiskTrigger = "PROFIT_CAP"
	TriggerWinStreak    RiskTrigger = "WIN_STREAK"
	TriggerMartingale   RiskTrigger = "MARTINGALE_DETECTED"
)

// RiskAssessment is the output of the risk classifier.
type RiskAssessment struct {
	Level    RiskLevel     `json:"level"`
	Triggers []RiskTrigger `json:"triggers"`
}

// GameLog is the immutable audit record of a completed round.
type GameLog struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Game          GameType        `json:"game"`
	RoundID       uuid.UUID       `json:"round_id"`
	Bet           int64           `json:"bet"`
	Payout        int64           `json:"payout"`
	Profit        int64           `json:"profit"`
	Result        json.RawMessage `json:"result"`
	RiskLevel     RiskLevel       `json:"risk_level"`
	Adjustment    *string         `json:"adjustment,omitempty"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ActionLock is the per-user mutex record. ExpiresAt is the failsafe for a
// holder that never releases.
type ActionLock struct {
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the lock may be taken over at now.
func (l *ActionLock) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
