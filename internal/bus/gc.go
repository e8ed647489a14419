// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/metrics"
	"github.com/ManuGH/nerve/internal/telemetry"
)

// Collection reasons.
const (
	ReasonAcknowledged = "acknowledged"
	ReasonAgedOut      = "aged_out"
)

// GarbageCollector accepts every message, acknowledges it and terminates its
// circulation once it is fully acknowledged or older than maxAge.
type GarbageCollector struct {
	name    string
	maxAge  time.Duration
	mailbox Mailbox
	backoff time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer
}

var _ Consumer = (*GarbageCollector)(nil)

func newGarbageCollector(name string, maxAge time.Duration, mailbox Mailbox) *GarbageCollector {
	return &GarbageCollector{
		name:    name,
		maxAge:  maxAge,
		mailbox: mailbox,
		backoff: time.Millisecond,
		logger:  log.WithComponent("gc"),
		tracer:  telemetry.Tracer("nerve/bus"),
	}
}

func (g *GarbageCollector) Name() string            { return g.name }
func (g *GarbageCollector) Accepts(event.Kind) bool { return true }
func (g *GarbageCollector) MaxAge() time.Duration   { return g.maxAge }

func (g *GarbageCollector) Consume(ctx context.Context, m *message.Message) error {
	if m.Collected() {
		return ErrConsumedAfterCollection
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := g.tracer.Start(ctx, "subscriber.consume")
	defer span.End()
	span.SetAttributes(telemetry.EventAttributes(m.Event().Name(), m.Priority(), m.Ballistic())...)
	span.SetAttributes(telemetry.MessageAttributes(m.ID(), m.Sequence())...)

	if m.Acknowledge(g.name) {
		metrics.IncAcknowledged(g.name)
	}
	if g.mailbox.Collect(m) {
		return nil
	}
	g.logger.Debug().Str(log.FieldMessageID, m.ID()).Dur("age", m.Age()).Strs("pending", m.Pending()).Msg("republishing unacknowledged message")
	g.mailbox.Republish(m)
	sleepCtx(ctx, g.backoff)
	return nil
}

// collect reports whether circulation of m is over and whether this call
// was the one that ended it.
func (g *GarbageCollector) collect(m *message.Message) (done, fresh bool) {
	full := m.FullyAcknowledged()
	aged := m.AgedOut(g.maxAge)
	if !full && !aged {
		return false, false
	}
	if !m.MarkCollected() {
		return true, false
	}

	reason := ReasonAcknowledged
	if !full {
		reason = ReasonAgedOut
	}
	metrics.IncCollected(reason)
	g.logger.Info().
		Str(log.FieldMessageID, m.ID()).
		Uint64(log.FieldSequence, m.Sequence()).
		Str(log.FieldKind, m.Event().Name()).
		Str("reason", reason).
		Int("processed", m.Processed()).
		Dur("age", m.Age()).
		Strs("acknowledged_by", m.Acknowledgements()).
		Strs("pending", m.Pending()).
		Msg("garbage collected")
	return true, true
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
