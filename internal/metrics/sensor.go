// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SensorEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_sensor_emitted_total",
		Help: "Total number of events emitted by simulated drivers, by sensor",
	}, []string{"sensor"})

	SensorSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nerve_sensor_suppressed_total",
		Help: "Total number of driver events dropped before publishing, by sensor and reason",
	}, []string{"sensor", "reason"})
)

// IncSensorSuppressed records a driver event that never reached a queue.
// reason is one of: throttled, debounced, rejected.
func IncSensorSuppressed(sensor, reason string) {
	SensorSuppressedTotal.WithLabelValues(sensor, reason).Inc()
}
