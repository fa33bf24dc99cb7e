package baccarat

import (
	"errors"
	"math"
)

// Payout multipliers are total return including the stake.
const (
	playerReturn = 2
	tieReturn    = 9
	pairReturn   = 12
	// Banker wins pay 19:20 after commission.
	bankerCommissionPct = 5
)

// MaxTableStake bounds any configured table maximum so that the largest
// possible payout still fits in int64.
const MaxTableStake = math.MaxInt64 / (pairReturn * 3)

var (
	ErrInvalidSide   = errors.New("side must be PLAYER, BANKER or TIE")
	ErrNonPositive   = errors.New("main bet must be positive")
	ErrNegativeSide  = errors.New("side bets must not be negative")
	ErrAboveTableMax = errors.New("total stake exceeds table maximum")
)

// Bet is one round's wagers in minor units.
type Bet struct {
	Side       Side  `json:"side"`
	Amount     int64 `json:"amount"`
	PlayerPair int64 `json:"player_pair,omitempty"`
	BankerPair int64 `json:"banker_pair,omitempty"`
}

// Total is the full stake debited when the round starts. Only meaningful
// for a bet that passed Validate.
func (b Bet) Total() int64 {
	return b.Amount + b.PlayerPair + b.BankerPair
}

// SideBets returns the non-zero side bets keyed by name.
func (b Bet) SideBets() map[string]int64 {
	m := map[string]int64{}
	if b.PlayerPair > 0 {
		m["PLAYER_PAIR"] = b.PlayerPair
	}
	if b.BankerPair > 0 {
		m["BANKER_PAIR"] = b.BankerPair
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Validate checks shape and the table maximum. Each stake is compared before
// anything is summed, so oversized components cannot wrap the total.
func (b Bet) Validate(maxStake int64) error {
	if !b.Side.IsValid() {
		return ErrInvalidSide
	}
	if b.Amount <= 0 {
		return ErrNonPositive
	}
	if b.PlayerPair < 0 || b.BankerPair < 0 {
		return ErrNegativeSide
	}
	if maxStake > MaxTableStake {
		maxStake = MaxTableStake
	}
	if b.Amount > maxStake || b.PlayerPair > maxStake-b.Amount || b.BankerPair > maxStake-b.Amount-b.PlayerPair {
		return ErrAboveTableMax
	}
	return nil
}

// Settlement is what the round returns to the player.
type Settlement struct {
	Stake  int64 `json:"stake"`
	Payout int64 `json:"payout"`
	// Push is set when the only money returned is a main bet refunded on a tie.
	Push bool `json:"push"`
}

// Net is payout minus stake.
func (s Settlement) Net() int64 {
	return s.Payout - s.Stake
}

// Settle pays out bet against r. A Player or Banker bet pushes on a tie.
// The bet must have passed Validate; arithmetic saturates instead of wrapping.
func Settle(bet Bet, r Result) Settlement {
	s := Settlement{Stake: bet.Total()}
	won := false

	switch {
	case r.Winner == bet.Side && bet.Side == SidePlayer:
		s.Payout = addSat(s.Payout, mulSat(bet.Amount, playerReturn))
		won = true
	case r.Winner == bet.Side && bet.Side == SideBanker:
		// amount * 95/100 rounded down, split so the product cannot overflow.
		winnings := mulSat(bet.Amount/100, 100-bankerCommissionPct) + bet.Amount%100*(100-bankerCommissionPct)/100
		s.Payout = addSat(s.Payout, addSat(bet.Amount, winnings))
		won = true
	case r.Winner == bet.Side && bet.Side == SideTie:
		s.Payout = addSat(s.Payout, mulSat(bet.Amount, tieReturn))
		won = true
	case r.Winner == SideTie:
		s.Payout = addSat(s.Payout, bet.Amount)
	}

	if r.PlayerPair && bet.PlayerPair > 0 {
		s.Payout = addSat(s.Payout, mulSat(bet.PlayerPair, pairReturn))
		won = true
	}
	if r.BankerPair && bet.BankerPair > 0 {
		s.Payout = addSat(s.Payout, mulSat(bet.BankerPair, pairReturn))
		won = true
	}

	s.Push = !won && s.Payout > 0
	return s
}

// mulSat multiplies non-negative a by k > 0, clamping at math.MaxInt64.
func mulSat(a, k int64) int64 {
	if a > math.MaxInt64/k {
		return math.MaxInt64
	}
	return a * k
}

// addSat adds non-negative values, clamping at math.MaxInt64.
func addSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
