// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sensor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/metrics"
)

// DefaultTockModulo makes every fifth beat a TOCK.
const DefaultTockModulo = 5

// Clock emits CLOCK_TICK every period. Every modulo-th beat emits
// CLOCK_TOCK instead of a TICK. The value is the beat count.
type Clock struct {
	period time.Duration
	modulo int
	sink   Sink
	logger zerolog.Logger
}

func NewClock(period time.Duration, modulo int, sink Sink) *Clock {
	if period <= 0 {
		period = time.Second
	}
	if modulo <= 0 {
		modulo = DefaultTockModulo
	}
	return &Clock{period: period, modulo: modulo, sink: sink, logger: log.WithComponent("clock")}
}

// Run ticks until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	c.logger.Info().Dur("period", c.period).Int("tock_modulo", c.modulo).Msg("clock started")

	var beat uint64
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Uint64("beats", beat).Msg("clock stopped")
			return nil
		case <-ticker.C:
		}
		beat++
		kind := event.ClockTick
		if beat%uint64(c.modulo) == 0 {
			kind = event.ClockTock
		}
		if err := c.sink.Emit(ctx, kind, beat); err != nil {
			c.logger.Debug().Err(err).Str(log.FieldKind, kind.String()).Msg("beat dropped")
			continue
		}
		metrics.SensorEmittedTotal.WithLabelValues("clock").Inc()
	}
}
