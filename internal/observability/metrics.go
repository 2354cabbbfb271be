package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the margin core.
type Metrics struct {
	// --- Operation pipeline ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	TxWrites    prometheus.Histogram

	// --- Risk ---
	LiquidatableFlagged *prometheus.CounterVec
	LiquidationChecks   *prometheus.CounterVec

	// --- Accumulators ---
	FundingAdvances  *prometheus.CounterVec
	OpenInterestUsd  *prometheus.GaugeVec
	ClaimableCredits *prometheus.CounterVec
	AffiliateRewards *prometheus.CounterVec

	// --- Persistence ---
	SnapshotTaken    prometheus.Counter
	SnapshotDuration prometheus.Histogram
	SnapshotLastSeq  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "margin_ops_applied_total",
			Help: "Position mutations successfully applied",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "margin_ops_rejected_total",
			Help: "Position mutations rejected (validation, solvency)",
		}, []string{"op", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "margin_op_duration_seconds",
			Help:    "Time to process a single position mutation",
			Buckets: latencyBuckets,
		}, []string{"op"}),

		TxWrites: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "margin_tx_writes",
			Help:    "Buffered store writes committed per operation",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),

		LiquidatableFlagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "margin_liquidatable_flagged_total",
			Help: "Positions flagged liquidatable by a scan",
		}, []string{"market"}),

		LiquidationChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "margin_liquidation_checks_total",
			Help: "Liquidation evaluations performed",
		}, []string{"market", "result"}),

		FundingAdvances: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "margin_funding_advances_total",
			Help: "Funding/borrowing accumulator advances",
		}, []string{"market"}),

		OpenInterestUsd: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "margin_open_interest_usd",
			Help: "USD open interest per market side (float approximation)",
		}, []string{"market", "token", "direction"}),

		ClaimableCredits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "margin_claimable_funding_credits_total",
			Help: "Claimable funding credits applied",
		}, []string{"market", "token"}),

		AffiliateRewards: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "margin_affiliate_rewards_total",
			Help: "Affiliate reward credits applied",
		}, []string{"market", "token"}),

		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "margin_snapshot_taken_total",
			Help: "State snapshots persisted",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "margin_snapshot_duration_seconds",
			Help:    "Snapshot creation time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "margin_snapshot_last_sequence",
			Help: "Operation sequence of last snapshot",
		}),
	}
}
