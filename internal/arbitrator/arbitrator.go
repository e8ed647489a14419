// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package arbitrator runs the fixed-period loop that selects the single
// highest-priority pending message and hands it to the controller.
package arbitrator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/nerve/internal/controller"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/metrics"
	"github.com/ManuGH/nerve/internal/motor"
	"github.com/ManuGH/nerve/internal/queue"
	"github.com/ManuGH/nerve/internal/telemetry"
)

// ErrInvariant marks a violated arbitration invariant, such as a nil candidate.
var ErrInvariant = errors.New("arbitrator: invariant violation")

// Config controls loop timing.
type Config struct {
	Period           time.Duration
	BatchSize        int
	BallisticPoll    time.Duration
	BallisticTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Period:           20 * time.Millisecond,
		BatchSize:        5,
		BallisticPoll:    200 * time.Millisecond,
		BallisticTimeout: 10 * time.Second,
	}
}

// Dispatcher executes an accepted message and reports completion.
type Dispatcher interface {
	Act(ctx context.Context, m *message.Message, done controller.Completion)
}

// Interrupter stops whatever the actuators are doing.
type Interrupter interface {
	Interrupt()
}

const (
	idleLogEvery     = 50
	idleLongLogEvery = 500
	idleLongAfter    = 500
	standbyLogEvery  = 10
)

// Arbitrator owns the current action. Only the loop goroutine writes it;
// Current returns a read-only snapshot.
type Arbitrator struct {
	cfg    Config
	queue  *queue.PriorityQueue
	ctrl   Dispatcher
	motors Interrupter
	tracer trace.Tracer
	logger zerolog.Logger

	current    atomic.Pointer[message.Message]
	suppressed atomic.Bool
	enabled    atomic.Bool

	cycle uint64
	idle  int
}

func New(cfg Config, q *queue.PriorityQueue, ctrl Dispatcher, motors Interrupter) *Arbitrator {
	def := DefaultConfig()
	if cfg.Period <= 0 {
		cfg.Period = def.Period
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BallisticPoll <= 0 {
		cfg.BallisticPoll = def.BallisticPoll
	}
	if cfg.BallisticTimeout <= 0 {
		cfg.BallisticTimeout = def.BallisticTimeout
	}
	a := &Arbitrator{
		cfg:    cfg,
		queue:  q,
		ctrl:   ctrl,
		motors: motors,
		tracer: telemetry.Tracer("nerve/arbitrator"),
		logger: log.WithComponent("arbitrator"),
	}
	a.enabled.Store(true)
	return a
}

// Current returns the message most recently dispatched, or nil.
func (a *Arbitrator) Current() *message.Message { return a.current.Load() }

// SetSuppressed makes every cycle discard the queue until cleared.
func (a *Arbitrator) SetSuppressed(suppressed bool) {
	a.suppressed.Store(suppressed)
	a.logger.Info().Bool("suppressed", suppressed).Msg("suppression changed")
}

func (a *Arbitrator) Suppressed() bool { return a.suppressed.Load() }

// Enable resumes arbitration after Disable.
func (a *Arbitrator) Enable() {
	a.enabled.Store(true)
	a.logger.Info().Msg("enabled")
}

// Disable pauses arbitration; queued messages stay put until re-enabled.
func (a *Arbitrator) Disable() {
	a.enabled.Store(false)
	a.logger.Info().Msg("disabled")
}

func (a *Arbitrator) Enabled() bool { return a.enabled.Load() }

// Run drives the loop until ctx is cancelled.
func (a *Arbitrator) Run(ctx context.Context) error {
	a.logger.Info().Dur("period", a.cfg.Period).Int("batch", a.cfg.BatchSize).Msg("arbitrating")
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Uint64(log.FieldCycle, a.cycle).Msg("loop end")
			return nil
		case <-timer.C:
		}

		start := time.Now()
		if a.enabled.Load() {
			a.runCycle(ctx)
		}
		busy := time.Since(start)
		metrics.ArbitrationCycleSeconds.Observe(busy.Seconds())

		wait := a.cfg.Period - busy
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

func (a *Arbitrator) runCycle(ctx context.Context) {
	a.cycle++
	metrics.ArbitrationCyclesTotal.Inc()
	logger := a.logger.With().Uint64(log.FieldCycle, a.cycle).Logger()

	if a.suppressed.Load() {
		if n := a.queue.Clear(); n > 0 {
			logger.Debug().Int("dropped", n).Msg("suppressed: queue cleared")
			metrics.ArbitrationDiscardedTotal.Add(float64(n))
		}
		return
	}

	batch := a.queue.PopUpTo(a.cfg.BatchSize)
	logger.Debug().Int("batch", len(batch)).Int("remaining", a.queue.Size()).Msg("cycle begins")

	if len(batch) > 0 {
		a.idle = 0
		for i, m := range batch[1:] {
			logger.Debug().
				Int("rank", i+1).
				Uint64(log.FieldSequence, m.Sequence()).
				Int(log.FieldPriority, m.Priority()).
				Str(log.FieldKind, m.Event().Name()).
				Msg("discarded")
		}
		discarded := len(batch) - 1 + a.queue.Clear()
		if discarded > 0 {
			metrics.ArbitrationDiscardedTotal.Add(float64(discarded))
		}
		if err := a.Accept(ctx, batch[0]); err != nil {
			logger.Error().Err(err).Msg("accept failed")
		}
	} else if a.current.Load() == nil {
		a.idle++
	}

	a.heartbeat(logger)
}

func (a *Arbitrator) heartbeat(logger zerolog.Logger) {
	if cur := a.current.Load(); cur != nil {
		if cur.Kind() == event.Standby && a.cycle%standbyLogEvery == 0 {
			logger.Info().Msg("standing by")
		}
		return
	}
	if a.idle == 0 {
		return
	}
	if a.idle <= idleLongAfter {
		if a.cycle%idleLogEvery == 0 {
			logger.Info().Int("queue", a.queue.Size()).Msg("idle")
		}
	} else if a.cycle%idleLongLogEvery == 0 {
		logger.Info().Msg("idle...")
	}
}

// Accept applies the arbitration rules to candidate. Re-arrival of the
// current event is a no-op; a running ballistic action is never interrupted;
// any other current action is interrupted before candidate is dispatched.
func (a *Arbitrator) Accept(ctx context.Context, candidate *message.Message) error {
	if candidate == nil {
		metrics.IncInvariant("nil_candidate")
		a.logger.Error().Str(log.FieldEvent, "invariant.nil_candidate").Msg("null candidate")
		return ErrInvariant
	}

	ctx, span := a.tracer.Start(ctx, "arbitrator.accept")
	defer span.End()
	span.SetAttributes(telemetry.EventAttributes(candidate.Event().Name(), candidate.Priority(), candidate.Ballistic())...)
	span.SetAttributes(telemetry.MessageAttributes(candidate.ID(), candidate.Sequence())...)

	logger := a.logger.With().
		Str(log.FieldMessageID, candidate.ID()).
		Uint64(log.FieldSequence, candidate.Sequence()).
		Str(log.FieldKind, candidate.Event().Name()).
		Int(log.FieldPriority, candidate.Priority()).
		Bool(log.FieldBallistic, candidate.Ballistic()).
		Logger()

	if cur := a.current.Load(); cur != nil {
		switch {
		case cur.Kind() == candidate.Kind():
			logger.Debug().Msg("no change")
			return nil
		case cur.Ballistic() && !cur.Done():
			metrics.ArbitrationBallisticBlockedTotal.Inc()
			logger.Warn().Str("current", cur.Event().Name()).Msg("not interrupting ballistic action")
			return nil
		case !cur.Ballistic():
			a.interrupt(cur, logger)
		}
	}

	a.current.Store(candidate)
	metrics.ArbitrationAcceptedTotal.WithLabelValues(candidate.Event().Name()).Inc()
	logger.Info().Msg("act on message")
	a.ctrl.Act(ctx, candidate, a.onComplete)

	if candidate.Ballistic() {
		if err := a.awaitBallistic(ctx, candidate, logger); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

func (a *Arbitrator) interrupt(cur *message.Message, logger zerolog.Logger) {
	metrics.ArbitrationInterruptsTotal.Inc()
	logger.Info().Str("current", cur.Event().Name()).Msg("interrupting current action")
	cur.Interrupt()
	if a.motors != nil {
		a.motors.Interrupt()
	}
}

// awaitBallistic blocks the loop until m is done. A ballistic action that
// outlives BallisticTimeout is closed so arbitration can resume.
func (a *Arbitrator) awaitBallistic(ctx context.Context, m *message.Message, logger zerolog.Logger) error {
	if m.Done() {
		return nil
	}
	ticker := time.NewTicker(a.cfg.BallisticPoll)
	defer ticker.Stop()
	deadline := time.NewTimer(a.cfg.BallisticTimeout)
	defer deadline.Stop()

	for {
		logger.Debug().Msg("waiting on ballistic action")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			metrics.IncInvariant("ballistic_timeout")
			logger.Error().Str(log.FieldEvent, "invariant.ballistic_timeout").Dur("timeout", a.cfg.BallisticTimeout).Msg("ballistic action did not complete, closing")
			m.Interrupt()
			return nil
		case <-ticker.C:
			if m.Done() {
				return nil
			}
		}
	}
}

func (a *Arbitrator) onComplete(m *message.Message, levels motor.PowerLevels) {
	logger := a.logger.With().Uint64(log.FieldSequence, m.Sequence()).Str(log.FieldKind, m.Event().Name()).Logger()
	if m.Done() {
		logger.Warn().Str(log.FieldNewState, string(m.State())).Msg("message already complete")
		return
	}
	old := m.State()
	if err := m.Complete(); err != nil {
		logger.Error().Err(err).Msg("cannot complete message")
		return
	}
	logger.Info().
		Str(log.FieldOldState, string(old)).
		Str(log.FieldNewState, string(m.State())).
		Float64(log.FieldPortPower, levels.Port).
		Float64(log.FieldStbdPower, levels.Stbd).
		Msg("event complete")
}
