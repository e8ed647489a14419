// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_queue_rejected_total",
		Help: "Total number of publishes rejected by back-pressure, by queue",
	}, []string{"queue"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nerve_queue_depth",
		Help: "Current number of queued messages, by queue",
	}, []string{"queue"})

	ArbitrationCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nerve_arbitration_cycles_total",
		Help: "Total number of arbitration loop cycles",
	})

	ArbitrationAcceptedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_arbitration_accepted_total",
		Help: "Total number of candidates dispatched to the controller, by event",
	}, []string{"event"})

	ArbitrationDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nerve_arbitration_discarded_total",
		Help: "Total number of lower-priority messages discarded in a cycle",
	})

	ArbitrationInterruptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nerve_arbitration_interrupts_total",
		Help: "Total number of non-ballistic actions interrupted by a new candidate",
	})

	ArbitrationBallisticBlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nerve_arbitration_ballistic_blocked_total",
		Help: "Total number of candidates dropped because a ballistic action was running",
	})

	ArbitrationInvariantTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_arbitration_invariant_total",
		Help: "Total number of invariant violations, by kind",
	}, []string{"kind"})

	ArbitrationCycleSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nerve_arbitration_cycle_seconds",
		Help:    "Busy time of one arbitration cycle",
		Buckets: []float64{.0005, .001, .005, .01, .02, .05, .1, .25, .5, 1, 5, 10},
	})
)

// IncQueueRejected records a back-pressure rejection.
func IncQueueRejected(queue string) {
	if queue == "" {
		queue = "unknown"
	}
	QueueRejectedTotal.WithLabelValues(queue).Inc()
}

// IncInvariant records an invariant violation of the given kind.
func IncInvariant(kind string) {
	ArbitrationInvariantTotal.WithLabelValues(kind).Inc()
}
