// Package baccarat resolves Punto Banco rounds and settles wagers against them.
// Everything here is pure: cards in, result out.
package baccarat

import (
	"fmt"

	"casino-ledger/internal/core/cards"
)

// Side is a main-bet position and also the winner of a round.
type Side string

const (
	SidePlayer Side = "PLAYER"
	SideBanker Side = "BANKER"
	SideTie    Side = "TIE"
)

// IsValid returns true for the three main-bet positions.
func (s Side) IsValid() bool {
	return s == SidePlayer || s == SideBanker || s == SideTie
}

// CardSource deals cards for a round.
type CardSource interface {
	Draw() (cards.Card, error)
}

// Result is the terminal state of a round.
type Result struct {
	PlayerCards []cards.Card `json:"player_cards"`
	BankerCards []cards.Card `json:"banker_cards"`
	PlayerTotal int          `json:"player_total"`
	BankerTotal int          `json:"banker_total"`
	Natural     bool         `json:"natural"`
	Winner      Side         `json:"winner"`
	PlayerPair  bool         `json:"player_pair"`
	BankerPair  bool         `json:"banker_pair"`
}

// Total is the hand's point value modulo 10.
func Total(hand []cards.Card) int {
	sum := 0
	for _, c := range hand {
		sum += c.BaccaratValue()
	}
	return sum % 10
}

// PlayerDraws reports whether the Player takes a third card.
func PlayerDraws(playerTotal int) bool {
	return playerTotal <= 5
}

// BankerDraws applies the Banker's third-card table. playerThird is nil when
// the Player stood.
func BankerDraws(bankerTotal int, playerThird *cards.Card) bool {
	if playerThird == nil {
		return bankerTotal <= 5
	}
	v := playerThird.BaccaratValue()
	switch bankerTotal {
	case 0, 1, 2:
		return true
	case 3:
		return v != 8
	case 4:
		return v >= 2 && v <= 7
	case 5:
		return v >= 4 && v <= 7
	case 6:
		return v == 6 || v == 7
	default:
		return false
	}
}

// Resolve plays one round from src. Cards are dealt Player, Banker, Player, Banker.
func Resolve(src CardSource) (Result, error) {
	var r Result
	deal := make([]cards.Card, 4)
	for i := range deal {
		c, err := src.Draw()
		if err != nil {
			return Result{}, fmt.Errorf("deal: %w", err)
		}
		deal[i] = c
	}
	r.PlayerCards = []cards.Card{deal[0], deal[2]}
	r.BankerCards = []cards.Card{deal[1], deal[3]}
	r.PlayerPair = deal[0].Rank == deal[2].Rank
	r.BankerPair = deal[1].Rank == deal[3].Rank

	pt, bt := Total(r.PlayerCards), Total(r.BankerCards)
	if pt >= 8 || bt >= 8 {
		r.Natural = true
		r.finish()
		return r, nil
	}

	var playerThird *cards.Card
	if PlayerDraws(pt) {
		c, err := src.Draw()
		if err != nil {
			return Result{}, fmt.Errorf("player third card: %w", err)
		}
		r.PlayerCards = append(r.PlayerCards, c)
		playerThird = &c
	}

	if BankerDraws(bt, playerThird) {
		c, err := src.Draw()
		if err != nil {
			return Result{}, fmt.Errorf("banker third card: %w", err)
		}
		r.BankerCards = append(r.BankerCards, c)
	}

	r.finish()
	return r, nil
}

func (r *Result) finish() {
	r.PlayerTotal = Total(r.PlayerCards)
	r.BankerTotal = Total(r.BankerCards)
	switch {
	case r.PlayerTotal > r.BankerTotal:
		r.Winner = SidePlayer
	case r.BankerTotal > r.PlayerTotal:
		r.Winner = SideBanker
	default:
		r.Winner = SideTie
	}
}
