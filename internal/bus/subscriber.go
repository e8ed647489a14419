// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/metrics"
	"github.com/ManuGH/nerve/internal/telemetry"
)

// Subscriber is a passive observer of a set of event kinds.
type Subscriber struct {
	name    string
	kinds   map[event.Kind]struct{}
	mailbox Mailbox
	store   journal.Store
	effects EffectConfig
	faults  *faults
	backoff time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer
}

var _ Consumer = (*Subscriber)(nil)

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithStore journals every saved message.
func WithStore(store journal.Store) SubscriberOption {
	return func(s *Subscriber) { s.store = store }
}

// WithEffects overrides the simulated side effect settings.
func WithEffects(cfg EffectConfig) SubscriberOption {
	return func(s *Subscriber) { s.effects = cfg }
}

// WithSeed makes the simulated delays and failures reproducible.
func WithSeed(seed uint64) SubscriberOption {
	return func(s *Subscriber) { s.faults = newFaults(s.effects.FailureRate, seed) }
}

// WithDeclineBackoff sets the pause after handing back a message this
// subscriber does not act on.
func WithDeclineBackoff(d time.Duration) SubscriberOption {
	return func(s *Subscriber) { s.backoff = d }
}

// NewSubscriber creates a subscriber for kinds on mailbox.
func NewSubscriber(name string, kinds []event.Kind, mailbox Mailbox, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		name:    name,
		kinds:   make(map[event.Kind]struct{}, len(kinds)),
		mailbox: mailbox,
		effects: DefaultEffectConfig(),
		backoff: time.Millisecond,
		logger:  log.WithComponent("subscriber").With().Str(log.FieldSubscriber, name).Logger(),
		tracer:  telemetry.Tracer("nerve/bus"),
	}
	for _, k := range kinds {
		s.kinds[k] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.faults == nil {
		h := fnv.New64a()
		_, _ = h.Write([]byte(name))
		s.faults = newFaults(s.effects.FailureRate, h.Sum64()^uint64(time.Now().UnixNano()))
	}
	s.faults.rate = s.effects.FailureRate
	return s
}

func (s *Subscriber) Name() string { return s.name }

// Accepts reports whether kind is in the filter.
func (s *Subscriber) Accepts(kind event.Kind) bool {
	_, ok := s.kinds[kind]
	return ok
}

// Acceptable reports whether this subscriber should act on m now: the kind
// is in the filter, m awaits this subscriber, and it has not acknowledged yet.
func (s *Subscriber) Acceptable(m *message.Message) bool {
	return s.Accepts(m.Kind()) && m.Requires(s.name) && !m.AcknowledgedBy(s.name)
}

// Consume handles one dequeued message.
func (s *Subscriber) Consume(ctx context.Context, m *message.Message) error {
	if m.Collected() {
		return ErrConsumedAfterCollection
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.Acceptable(m) {
		s.handBack(m)
		sleepCtx(ctx, s.backoff)
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "subscriber.consume")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.SubscriberKey, s.name))
	span.SetAttributes(telemetry.EventAttributes(m.Event().Name(), m.Priority(), m.Ballistic())...)
	span.SetAttributes(telemetry.MessageAttributes(m.ID(), m.Sequence())...)

	logger := s.logger.With().Str(log.FieldMessageID, m.ID()).Str(log.FieldKind, m.Event().Name()).Logger()
	logger.Debug().Msg("consuming message")

	s.handle(log.ContextWithMessageID(ctx, m.ID()), m, logger, span)
	if err := ctx.Err(); err != nil {
		// Cut short by shutdown: neither acknowledged nor handed back.
		return err
	}

	if m.Acknowledge(s.name) {
		metrics.IncAcknowledged(s.name)
	}
	s.handBack(m)
	return nil
}

// handBack republishes m unless every acknowledger is done, in which case
// it goes to the garbage collector.
func (s *Subscriber) handBack(m *message.Message) {
	if m.FullyAcknowledged() && s.mailbox.Collect(m) {
		return
	}
	s.mailbox.Republish(m)
}

// handle runs processing and cleanup alongside the external effects and
// returns once cleanup has finished.
func (s *Subscriber) handle(ctx context.Context, m *message.Message, logger zerolog.Logger, span trace.Span) {
	signal := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.process(ctx, m, signal)
	}()
	go func() {
		defer wg.Done()
		s.cleanup(ctx, m, signal)
	}()

	if err := s.runEffects(ctx, m); err != nil && ctx.Err() == nil {
		span.RecordError(err)
		s.report(err, logger)
	}
	close(signal)
	wg.Wait()
}

func (s *Subscriber) report(err error, logger zerolog.Logger) {
	var joined interface{ Unwrap() []error }
	errs := []error{err}
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		switch {
		case errors.Is(e, ErrRestartFailed):
			metrics.IncEffectFailure("restart")
			logger.Error().Err(e).Msg("failed to restart")
		case errors.Is(e, ErrSaveFailed):
			metrics.IncEffectFailure("save")
			logger.Error().Err(e).Msg("failed to save")
		default:
			metrics.IncEffectFailure("other")
			logger.Error().Err(e).Msg("effect failed")
		}
	}
}

// process repeats the processing side effect until signal closes.
func (s *Subscriber) process(ctx context.Context, m *message.Message, signal <-chan struct{}) {
	interval := s.effects.ProcessInterval
	if interval <= 0 {
		interval = DefaultEffectConfig().ProcessInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.Process()
		s.logger.Debug().Str("message", m.String()).Dur("age", m.Age()).Msg("processing message")
		select {
		case <-signal:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cleanup waits for signal, simulates some I/O, and marks m expired.
func (s *Subscriber) cleanup(ctx context.Context, m *message.Message, signal <-chan struct{}) {
	select {
	case <-signal:
	case <-ctx.Done():
		return
	}
	if err := wait(ctx, s.faults.delay(s.effects.EffectDelay)); err != nil {
		return
	}
	m.MarkExpired()
	s.logger.Debug().Str("message", m.String()).Msg("cleanup done")
}
