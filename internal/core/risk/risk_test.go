package risk

import (
	"testing"

	"casino-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		account  domain.Account
		bet      int64
		level    domain.RiskLevel
		triggers []domain.RiskTrigger
	}{
		{
			name:     "quiet session",
			account:  domain.Account{Balance: 10_000, TotalDeposits: 20_000},
			bet:      500,
			level:    domain.RiskLevelNormal,
			triggers: []domain.RiskTrigger{},
		},
		{
			name:     "ninety percent exposure",
			account:  domain.Account{Balance: 10},
			bet:      90,
			level:    domain.RiskLevelExtreme,
			triggers: []domain.RiskTrigger{domain.TriggerHighExposure},
		},
		{
			name: "exposure short-circuits every other signal",
			account: domain.Account{
				Balance:         10,
				SessionProfit:   1_000_000,
				ConsecutiveWins: 9,
				LastBetResult:   domain.BetResultLoss,
				PreviousBet:     1,
			},
			bet:      90,
			level:    domain.RiskLevelExtreme,
			triggers: []domain.RiskTrigger{domain.TriggerHighExposure},
		},
		{
			name:     "just under exposure",
			account:  domain.Account{Balance: 11},
			bet:      89,
			level:    domain.RiskLevelNormal,
			triggers: []domain.RiskTrigger{},
		},
		{
			name:     "profit over fifteen percent of deposits",
			account:  domain.Account{Balance: 100_000, TotalDeposits: 50_000, SessionProfit: 7_501},
			bet:      100,
			level:    domain.RiskLevelExtreme,
			triggers: []domain.RiskTrigger{domain.TriggerProfitCap},
		},
		{
			name:     "profit exactly at cap",
			account:  domain.Account{Balance: 100_000, TotalDeposits: 50_000, SessionProfit: 7_500},
			bet:      100,
			level:    domain.RiskLevelNormal,
			triggers: []domain.RiskTrigger{},
		},
		{
			name:     "profit floor applies to small depositors",
			account:  domain.Account{Balance: 100_000, TotalDeposits: 1_000, SessionProfit: 1_501},
			bet:      100,
			level:    domain.RiskLevelExtreme,
			triggers: []domain.RiskTrigger{domain.TriggerProfitCap},
		},
		{
			name:     "three wins",
			account:  domain.Account{Balance: 100_000, ConsecutiveWins: 3},
			bet:      100,
			level:    domain.RiskLevelExtreme,
			triggers: []domain.RiskTrigger{domain.TriggerWinStreak},
		},
		{
			name:     "two wins",
			account:  domain.Account{Balance: 100_000, ConsecutiveWins: 2},
			bet:      100,
			level:    domain.RiskLevelNormal,
			triggers: []domain.RiskTrigger{},
		},
		{
			name:     "martingale after loss",
			account:  domain.Account{Balance: 100_000, LastBetResult: domain.BetResultLoss, PreviousBet: 100},
			bet:      190,
			level:    domain.RiskLevelHigh,
			triggers: []domain.RiskTrigger{domain.TriggerMartingale},
		},
		{
			name:     "escalation below ratio",
			account:  domain.Account{Balance: 100_000, LastBetResult: domain.BetResultLoss, PreviousBet: 100},
			bet:      189,
			level:    domain.RiskLevelNormal,
			triggers: []domain.RiskTrigger{},
		},
		{
			name:     "doubling after a win is not martingale",
			account:  domain.Account{Balance: 100_000, LastBetResult: domain.BetResultWin, PreviousBet: 100},
			bet:      200,
			level:    domain.RiskLevelNormal,
			triggers: []domain.RiskTrigger{},
		},
		{
			name: "martingale never downgrades extreme",
			account: domain.Account{
				Balance:         100_000,
				ConsecutiveWins: 4,
				LastBetResult:   domain.BetResultLoss,
				PreviousBet:     100,
			},
			bet:      200,
			level:    domain.RiskLevelExtreme,
			triggers: []domain.RiskTrigger{domain.TriggerWinStreak, domain.TriggerMartingale},
		},
		{
			name:     "all non-exposure triggers accumulate",
			account:  domain.Account{Balance: 100_000, SessionProfit: 50_000, ConsecutiveWins: 5},
			bet:      100,
			level:    domain.RiskLevelExtreme,
			triggers: []domain.RiskTrigger{domain.TriggerProfitCap, domain.TriggerWinStreak},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(&tt.account, tt.bet)
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.triggers, got.Triggers)
		})
	}
}
