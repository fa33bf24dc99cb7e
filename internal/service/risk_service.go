package service

import (
	"context"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/risk"
	"casino-ledger/internal/observability"

	"github.com/rs/zerolog"
)

// RiskServiceImpl implements ports.RiskService around the pure classifier.
type RiskServiceImpl struct {
	metrics        *observability.Metrics
	metricsEnabled bool
	log            zerolog.Logger
}

// NewRiskService creates a new RiskServiceImpl. With metricsEnabled false the
// classification still runs but emits no metric events.
func NewRiskService(metrics *observability.Metrics, metricsEnabled bool, log zerolog.Logger) *RiskServiceImpl {
	return &RiskServiceImpl{metrics: metrics, metricsEnabled: metricsEnabled, log: log}
}

// Assess classifies bet for account. The result is advisory only.
func (s *RiskServiceImpl) Assess(_ context.Context, account *domain.Account, bet int64) domain.RiskAssessment {
	assessment := risk.Classify(account, bet)
	if !s.metricsEnabled {
		return assessment
	}

	s.metrics.RiskAssessments.WithLabelValues(string(assessment.Level)).Inc()
	if len(assessment.Triggers) == 0 {
		return assessment
	}

	triggers := make([]string, len(assessment.Triggers))
	for i, t := range assessment.Triggers {
		s.metrics.RiskTriggers.WithLabelValues(string(t)).Inc()
		triggers[i] = string(t)
	}
	s.log.Warn().
		Str("user_id", account.ID.String()).
		Str("level", string(assessment.Level)).
		Strs("triggers", triggers).
		Msg("risk triggers raised")

	return assessment
}
