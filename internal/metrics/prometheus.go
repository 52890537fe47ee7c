package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementsTotal counts settled jobs by terminal state and failure kind.
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_settlements_total",
			Help: "Total number of settled generation jobs",
		},
		[]string{"state", "kind"},
	)

	// JobsInFlight tracks jobs between submission and settlement.
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "maestro_jobs_in_flight",
			Help: "Number of jobs currently submitted but not settled",
		},
	)

	// PollCycles tracks how many status checks each job needed to settle.
	PollCycles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "maestro_poll_cycles",
			Help:    "Status check cycles per job until settlement",
			Buckets: prometheus.LinearBuckets(1, 2, 15),
		},
	)

	// SettleLatency tracks wall-clock seconds from submission to settlement.
	SettleLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "maestro_settle_latency_seconds",
			Help:    "Wall-clock duration from submission to settlement",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
	)

	// TransientPollErrors counts status checks that failed to reach the
	// remote service (absorbed into the poll budget, not surfaced).
	TransientPollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maestro_transient_poll_errors_total",
			Help: "Total number of status checks that failed transiently",
		},
	)
)
