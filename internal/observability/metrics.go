package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// --- Lock Manager ---
	LockAcquire         *prometheus.CounterVec
	LockReleaseFailures prometheus.Counter
	LocksPurged         prometheus.Counter

	// --- Ledger ---
	LedgerApplied       *prometheus.CounterVec
	LedgerRejected      *prometheus.CounterVec
	LedgerApplyDuration prometheus.Histogram

	// --- Tiered Cache & Game State ---
	CacheOps            *prometheus.CounterVec
	GameStateDurable    *prometheus.CounterVec
	GameStateWritesLost prometheus.Counter

	// --- Risk & Games ---
	RiskAssessments *prometheus.CounterVec
	RiskTriggers    *prometheus.CounterVec
	RoundsSettled   *prometheus.CounterVec

	// --- HTTP ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RateLimited  *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry() so instances never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		LockAcquire: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_lock_acquire_total",
			Help: "Action lock acquisition attempts by result (acquired, contended, error)",
		}, []string{"result"}),
		LockReleaseFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "clg_lock_release_failures_total",
			Help: "Lock releases that failed and were left to the failsafe expiry",
		}),
		LocksPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "clg_locks_purged_total",
			Help: "Expired action locks removed by the janitor",
		}),

		LedgerApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_ledger_applied_total",
			Help: "Committed ledger entries by transaction type",
		}, []string{"type"}),
		LedgerRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_ledger_rejected_total",
			Help: "Ledger applications that failed by reason",
		}, []string{"reason"}),
		LedgerApplyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clg_ledger_apply_duration_seconds",
			Help:    "Time spent in the ledger transaction block",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		CacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_cache_ops_total",
			Help: "Fast tier operations by kind and result (hit, miss, ok, error)",
		}, []string{"op", "result"}),
		GameStateDurable: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_game_state_durable_writes_total",
			Help: "Write-behind game state snapshots by result",
		}, []string{"result"}),
		GameStateWritesLost: f.NewCounter(prometheus.CounterOpts{
			Name: "clg_game_state_writes_lost_total",
			Help: "Write-behind snapshots dropped because the durable write failed",
		}),

		RiskAssessments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_risk_assessments_total",
			Help: "Wager risk classifications by level",
		}, []string{"level"}),
		RiskTriggers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_risk_triggers_total",
			Help: "Risk trigger events by trigger",
		}, []string{"trigger"}),
		RoundsSettled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_rounds_settled_total",
			Help: "Completed game rounds by game and settlement (win, push, loss)",
		}, []string{"game", "settlement"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clg_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clg_rate_limit_events_total",
			Help: "Requests rejected by the rate limiter, or let through because its store failed",
		}, []string{"group", "outcome"}),
	}
}
