// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"
)

// DefaultCheckTimeout bounds a single store probe.
const DefaultCheckTimeout = 2 * time.Second

// Counter is the part of a journal store the probe uses.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Pinger is implemented by stores with a cheaper liveness probe than Count.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// JournalChecker reports whether the journal store answers.
type JournalChecker struct {
	store   Counter
	timeout time.Duration
}

// NewJournalChecker probes store; a nil store reports healthy and unconfigured.
func NewJournalChecker(store Counter) *JournalChecker {
	return &JournalChecker{store: store, timeout: DefaultCheckTimeout}
}

func (c *JournalChecker) Name() string { return "journal" }

func (c *JournalChecker) Check(ctx context.Context) CheckResult {
	if c.store == nil {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if p, ok := c.store.(Pinger); ok {
		if err := p.HealthCheck(ctx); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
	}
	n, err := c.store.Count(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d records", n)}
}

// BusChecker reports broadcast back-pressure. At or above the degraded
// fraction of capacity it is degraded; at capacity publishes fail and it is
// unhealthy.
type BusChecker struct {
	inFlight func() int
	capacity int
	degraded float64
}

// NewBusChecker watches inFlight against capacity.
func NewBusChecker(inFlight func() int, capacity int) *BusChecker {
	return &BusChecker{inFlight: inFlight, capacity: capacity, degraded: 0.8}
}

func (c *BusChecker) Name() string { return "bus" }

func (c *BusChecker) Check(context.Context) CheckResult {
	n := c.inFlight()
	msg := fmt.Sprintf("%d/%d in flight", n, c.capacity)
	switch {
	case c.capacity <= 0:
		return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d in flight", n)}
	case n >= c.capacity:
		return CheckResult{Status: StatusUnhealthy, Message: msg, Error: "bus full"}
	case float64(n) >= c.degraded*float64(c.capacity):
		return CheckResult{Status: StatusDegraded, Message: msg}
	default:
		return CheckResult{Status: StatusHealthy, Message: msg}
	}
}

// ArbitratorChecker reports a paused arbitrator as degraded.
type ArbitratorChecker struct {
	enabled func() bool
}

func NewArbitratorChecker(enabled func() bool) *ArbitratorChecker {
	return &ArbitratorChecker{enabled: enabled}
}

func (c *ArbitratorChecker) Name() string { return "arbitrator" }

func (c *ArbitratorChecker) Check(context.Context) CheckResult {
	if !c.enabled() {
		return CheckResult{Status: StatusDegraded, Message: "arbitration paused"}
	}
	return CheckResult{Status: StatusHealthy, Message: "arbitrating"}
}
