// Package risk classifies wagers from a player's session signals.
package risk

import "casino-ledger/internal/core/domain"

const (
	// ExposurePct is the stake share of the pre-bet bankroll that is EXTREME on its own.
	ExposurePct = 90
	// ProfitCapPct is the session profit share of deposits that is EXTREME.
	ProfitCapPct = 15
	// ProfitFloor is the minimum deposit base for the profit cap, 100.00 in minor units.
	ProfitFloor int64 = 10_000
	// WinStreak is the consecutive-win count that is EXTREME.
	WinStreak = 3
	// MartingaleRatioX10 is the bet escalation after a loss that is HIGH, as a tenfold ratio.
	MartingaleRatioX10 = 19
)

// Classify returns the advisory risk level for placing bet. account.Balance
// is the balance left once bet is staked, so balance+bet is the bankroll the
// wager was drawn from. Other counters are read as they were before the bet.
func Classify(account *domain.Account, bet int64) domain.RiskAssessment {
	out := domain.RiskAssessment{Level: domain.RiskLevelNormal, Triggers: []domain.RiskTrigger{}}

	if bankroll := account.Balance + bet; bankroll > 0 && bet*100 >= ExposurePct*bankroll {
		out.Level = domain.RiskLevelExtreme
		out.Triggers = append(out.Triggers, domain.TriggerHighExposure)
		return out
	}

	base := account.TotalDeposits
	if base < ProfitFloor {
		base = ProfitFloor
	}
	if account.SessionProfit*100 > ProfitCapPct*base {
		out.Level = domain.RiskLevelExtreme
		out.Triggers = append(out.Triggers, domain.TriggerProfitCap)
	}

	if account.ConsecutiveWins >= WinStreak {
		out.Level = domain.RiskLevelExtreme
		out.Triggers = append(out.Triggers, domain.TriggerWinStreak)
	}

	if account.LastBetResult == domain.BetResultLoss && account.PreviousBet > 0 &&
		bet*10 >= MartingaleRatioX10*account.PreviousBet {
		if out.Level != domain.RiskLevelExtreme {
			out.Level = domain.RiskLevelHigh
		}
		out.Triggers = append(out.Triggers, domain.TriggerMartingale)
	}

	return out
}
