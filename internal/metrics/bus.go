// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nerve_bus_published_total",
		Help: "Total number of messages admitted to the broadcast bus",
	})

	BusRepublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nerve_bus_republished_total",
		Help: "Total number of messages returned to the broadcast queue",
	})

	BusAcknowledgedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_bus_acknowledged_total",
		Help: "Total number of acknowledgements by subscriber",
	}, []string{"subscriber"})

	BusCollectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_bus_collected_total",
		Help: "Total number of collected messages by reason (acknowledged, aged_out)",
	}, []string{"reason"})

	BusEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_bus_effect_failures_total",
		Help: "Total number of failed subscriber side effects by effect",
	}, []string{"effect"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_bus_dropped_total",
		Help: "Total number of broadcast messages dropped by reason",
	}, []string{"reason"})

	BusInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nerve_bus_in_flight",
		Help: "Messages admitted to the broadcast bus and not yet collected",
	})
)

// IncBusDrop records a dropped broadcast message with a concrete reason.
func IncBusDrop(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(reason).Inc()
}

// IncAcknowledged records one acknowledgement flip.
func IncAcknowledged(subscriber string) {
	BusAcknowledgedTotal.WithLabelValues(subscriber).Inc()
}

// IncCollected records a collected message.
func IncCollected(reason string) {
	BusCollectedTotal.WithLabelValues(reason).Inc()
}

// IncEffectFailure records a failed save or restart effect.
func IncEffectFailure(effect string) {
	BusEffectFailuresTotal.WithLabelValues(effect).Inc()
}
