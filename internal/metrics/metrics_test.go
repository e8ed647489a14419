// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncQueueRejected(t *testing.T) {
	c := QueueRejectedTotal.WithLabelValues("metrics_test")
	before := testutil.ToFloat64(c)
	IncQueueRejected("metrics_test")
	IncQueueRejected("metrics_test")
	assert.InDelta(t, before+2, testutil.ToFloat64(c), 1e-9)
}

func TestSetCircuitBreakerState_OneHot(t *testing.T) {
	SetCircuitBreakerState("metrics_test", "open")
	assert.InDelta(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("metrics_test", "open")), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("metrics_test", "closed")), 1e-9)

	SetCircuitBreakerState("metrics_test", "closed")
	assert.InDelta(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("metrics_test", "open")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("metrics_test", "closed")), 1e-9)
}

func TestSensorSuppressed(t *testing.T) {
	c := SensorSuppressedTotal.WithLabelValues("metrics_test", "debounced")
	before := testutil.ToFloat64(c)
	IncSensorSuppressed("metrics_test", "debounced")
	assert.InDelta(t, before+1, testutil.ToFloat64(c), 1e-9)
}
