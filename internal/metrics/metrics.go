package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Market lifecycle metrics
	MarketsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmengine_markets_created_total",
			Help: "Total number of markets created",
		},
	)

	MarketsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmengine_markets_resolved_total",
			Help: "Total number of markets resolved",
		},
		[]string{"outcome"}, // YES, NO
	)

	TieBreaks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmengine_tie_breaks_total",
			Help: "Total number of tie-break randomness requests issued",
		},
	)

	// Stake metrics
	BetsPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmengine_bets_placed_total",
			Help: "Total number of bets placed",
		},
		[]string{"side"}, // YES, NO
	)

	StakeVolume = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmengine_stake_volume_units_total",
			Help: "Total stake volume in 6-decimal token units",
		},
		[]string{"side"},
	)

	// Settlement metrics
	PayoutsClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmengine_payouts_claimed_total",
			Help: "Total number of successful payout claims",
		},
	)

	PayoutVolume = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmengine_payout_volume_units_total",
			Help: "Total payout volume in 6-decimal token units",
		},
	)

	FeesAccrued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmengine_fees_accrued_units_total",
			Help: "Total protocol fees credited to the treasury vault",
		},
	)

	// External collaborator metrics
	OracleReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmengine_oracle_reads_total",
			Help: "Total number of oracle price reads",
		},
		[]string{"status"}, // ok, error
	)

	RandomnessRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmengine_randomness_requests_total",
			Help: "Total number of randomness requests and fulfillments",
		},
		[]string{"phase"}, // requested, fulfilled, rejected
	)

	AutomationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmengine_automation_runs_total",
			Help: "Total number of automation upkeep attempts",
		},
		[]string{"status"}, // performed, retry, error
	)
)
