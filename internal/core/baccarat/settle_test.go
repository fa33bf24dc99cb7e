package baccarat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettle(t *testing.T) {
	tests := []struct {
		name   string
		bet    Bet
		result Result
		payout int64
		push   bool
	}{
		{"player wins", Bet{Side: SidePlayer, Amount: 1000}, Result{Winner: SidePlayer}, 2000, false},
		{"player loses", Bet{Side: SidePlayer, Amount: 1000}, Result{Winner: SideBanker}, 0, false},
		{"banker wins with commission", Bet{Side: SideBanker, Amount: 1000}, Result{Winner: SideBanker}, 1950, false},
		{"banker commission rounds down", Bet{Side: SideBanker, Amount: 15}, Result{Winner: SideBanker}, 29, false},
		{"tie wins eight to one", Bet{Side: SideTie, Amount: 100}, Result{Winner: SideTie}, 900, false},
		{"tie loses", Bet{Side: SideTie, Amount: 100}, Result{Winner: SidePlayer}, 0, false},
		{"player pushes on tie", Bet{Side: SidePlayer, Amount: 500}, Result{Winner: SideTie}, 500, true},
		{"banker pushes on tie", Bet{Side: SideBanker, Amount: 500}, Result{Winner: SideTie}, 500, true},
		{
			"player pair pays eleven to one",
			Bet{Side: SideBanker, Amount: 100, PlayerPair: 10},
			Result{Winner: SidePlayer, PlayerPair: true},
			120, false,
		},
		{
			"push plus losing side bet",
			Bet{Side: SidePlayer, Amount: 100, BankerPair: 50},
			Result{Winner: SideTie},
			100, true,
		},
		{
			"both pairs",
			Bet{Side: SidePlayer, Amount: 100, PlayerPair: 10, BankerPair: 20},
			Result{Winner: SidePlayer, PlayerPair: true, BankerPair: true},
			200 + 120 + 240, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settle(tt.bet, tt.result)
			assert.Equal(t, tt.bet.Total(), s.Stake)
			assert.Equal(t, tt.payout, s.Payout)
			assert.Equal(t, tt.push, s.Push)
			assert.Equal(t, tt.payout-tt.bet.Total(), s.Net())
		})
	}
}

func TestBet_Validate(t *testing.T) {
	tests := []struct {
		name string
		bet  Bet
		err  error
	}{
		{"ok", Bet{Side: SidePlayer, Amount: 100}, nil},
		{"ok with sides", Bet{Side: SideTie, Amount: 100, PlayerPair: 50, BankerPair: 50}, nil},
		{"bad side", Bet{Side: "DRAGON", Amount: 100}, ErrInvalidSide},
		{"zero", Bet{Side: SideBanker}, ErrNonPositive},
		{"negative side bet", Bet{Side: SideBanker, Amount: 1, PlayerPair: -1}, ErrNegativeSide},
		{"over max", Bet{Side: SideBanker, Amount: 900, BankerPair: 200}, ErrAboveTableMax},
		{"main bet alone over max", Bet{Side: SidePlayer, Amount: math.MaxInt64}, ErrAboveTableMax},
		{"side bet alone over max", Bet{Side: SidePlayer, Amount: 1, PlayerPair: math.MaxInt64}, ErrAboveTableMax},
		{
			"components wrap to a small total",
			Bet{Side: SideBanker, Amount: math.MaxInt64, PlayerPair: 1921535841011411627, BankerPair: 7301836195843364682},
			ErrAboveTableMax,
		},
		{"exactly max", Bet{Side: SideTie, Amount: 600, PlayerPair: 200, BankerPair: 200}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bet.Validate(1000)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBet_SideBets(t *testing.T) {
	assert.Nil(t, Bet{Side: SidePlayer, Amount: 1}.SideBets())
	assert.Equal(t, map[string]int64{"PLAYER_PAIR": 5}, Bet{Side: SidePlayer, Amount: 1, PlayerPair: 5}.SideBets())
}

func TestBet_ValidateClampsTableMax(t *testing.T) {
	bet := Bet{Side: SidePlayer, Amount: MaxTableStake + 1}
	assert.ErrorIs(t, bet.Validate(math.MaxInt64), ErrAboveTableMax)

	bet = Bet{Side: SidePlayer, Amount: MaxTableStake / 3, PlayerPair: MaxTableStake / 3, BankerPair: MaxTableStake / 3}
	assert.NoError(t, bet.Validate(math.MaxInt64))
}

func TestSettle_LargestValidBetDoesNotOverflow(t *testing.T) {
	third := int64(MaxTableStake / 3)
	bet := Bet{Side: SideTie, Amount: third, PlayerPair: third, BankerPair: third}
	assert.NoError(t, bet.Validate(MaxTableStake))

	s := Settle(bet, Result{Winner: SideTie, PlayerPair: true, BankerPair: true})
	assert.Equal(t, third*tieReturn+2*third*pairReturn, s.Payout)
	assert.Positive(t, s.Net())
}

func TestSettle_SaturatesInsteadOfWrapping(t *testing.T) {
	s := Settle(Bet{Side: SidePlayer, Amount: math.MaxInt64 / 2, PlayerPair: math.MaxInt64 / 2}, Result{Winner: SidePlayer, PlayerPair: true})
	assert.Equal(t, int64(math.MaxInt64), s.Payout)

	s = Settle(Bet{Side: SideBanker, Amount: math.MaxInt64}, Result{Winner: SideBanker})
	assert.Equal(t, int64(math.MaxInt64), s.Payout)
}
