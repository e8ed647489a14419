// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sensor holds simulated drivers that feed events into the core, plus
// the filters placed between a noisy driver and its queue.
package sensor

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/metrics"
)

var (
	// ErrThrottled is returned when a Throttle drops an event.
	ErrThrottled = errors.New("sensor: event throttled")
	// ErrDebounced is returned when a Debouncer drops a repeated event.
	ErrDebounced = errors.New("sensor: event debounced")
)

// Sink receives events from a driver.
type Sink interface {
	Emit(ctx context.Context, kind event.Kind, value any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, kind event.Kind, value any) error

func (f SinkFunc) Emit(ctx context.Context, kind event.Kind, value any) error {
	return f(ctx, kind, value)
}

// Throttle caps the rate at which events pass through to next.
type Throttle struct {
	name    string
	limiter *rate.Limiter
	next    Sink
}

// NewThrottle allows perSecond events with the given burst.
func NewThrottle(name string, perSecond float64, burst int, next Sink) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{name: name, limiter: rate.NewLimiter(rate.Limit(perSecond), burst), next: next}
}

func (t *Throttle) Emit(ctx context.Context, kind event.Kind, value any) error {
	if !t.limiter.Allow() {
		metrics.IncSensorSuppressed(t.name, "throttled")
		return ErrThrottled
	}
	return t.next.Emit(ctx, kind, value)
}

// Debouncer drops an event when the same kind already passed within window.
type Debouncer struct {
	name   string
	window time.Duration
	seen   *gocache.Cache
	next   Sink
}

// NewDebouncer creates a debouncer. Expired entries are overwritten on the
// next emission of that kind, so no janitor goroutine is started.
func NewDebouncer(name string, window time.Duration, next Sink) *Debouncer {
	return &Debouncer{
		name:   name,
		window: window,
		seen:   gocache.New(window, 0),
		next:   next,
	}
}

func (d *Debouncer) Emit(ctx context.Context, kind event.Kind, value any) error {
	if d.window > 0 {
		if err := d.seen.Add(kind.String(), struct{}{}, d.window); err != nil {
			metrics.IncSensorSuppressed(d.name, "debounced")
			return ErrDebounced
		}
	}
	return d.next.Emit(ctx, kind, value)
}
