// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sensor

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/metrics"
)

// RandomKinds is the event mix a RandomPublisher draws from.
var RandomKinds = []event.Kind{
	event.Stop,
	event.InfraredPort, event.InfraredCntr, event.InfraredStbd,
	event.BumperPort, event.BumperCntr, event.BumperStbd,
	event.FullAhead, event.Roam, event.Astern,
	event.Sniff,
}

// RandomPublisher emits a random event after a random pause in
// [0, maxInterval). It stands in for real hardware drivers.
type RandomPublisher struct {
	name        string
	maxInterval time.Duration
	kinds       []event.Kind
	catalogue   *event.Catalogue
	rng         *rand.Rand
	sink        Sink
	logger      zerolog.Logger
}

func NewRandomPublisher(name string, maxInterval time.Duration, seed uint64, sink Sink) *RandomPublisher {
	if maxInterval <= 0 {
		maxInterval = time.Second
	}
	return &RandomPublisher{
		name:        name,
		maxInterval: maxInterval,
		kinds:       RandomKinds,
		catalogue:   event.Default(),
		rng:         rand.New(rand.NewPCG(seed, seed+1)),
		sink:        sink,
		logger:      log.WithComponent("publisher").With().Str("publisher", name).Logger(),
	}
}

// Next picks the next event. Only Run calls it, so rng needs no lock.
func (p *RandomPublisher) Next() event.Kind {
	return p.kinds[p.rng.IntN(len(p.kinds))]
}

// Run publishes until ctx is cancelled.
func (p *RandomPublisher) Run(ctx context.Context) error {
	p.logger.Info().Dur("max_interval", p.maxInterval).Msg("publisher started")
	for {
		kind := p.Next()
		var desc string
		if info, ok := p.catalogue.Lookup(kind); ok {
			desc = info.Description
		}
		if err := p.sink.Emit(ctx, kind, desc); err != nil {
			p.logger.Debug().Err(err).Str(log.FieldKind, kind.String()).Msg("event dropped")
		} else {
			metrics.SensorEmittedTotal.WithLabelValues(p.name).Inc()
			p.logger.Debug().Str(log.FieldKind, kind.String()).Msg("published")
		}

		t := time.NewTimer(time.Duration(p.rng.Int64N(int64(p.maxInterval))))
		select {
		case <-ctx.Done():
			t.Stop()
			p.logger.Info().Msg("publisher stopped")
			return nil
		case <-t.C:
		}
	}
}
