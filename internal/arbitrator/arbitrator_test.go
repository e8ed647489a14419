// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package arbitrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ManuGH/nerve/internal/controller"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/motor"
	"github.com/ManuGH/nerve/internal/queue"
)

// recordingDispatcher completes synchronously unless delay is set for
// ballistic messages, in which case completion arrives from another goroutine.
type recordingDispatcher struct {
	mu             sync.Mutex
	acted          []*message.Message
	ballisticDelay time.Duration
}

func (d *recordingDispatcher) Act(_ context.Context, m *message.Message, done controller.Completion) {
	d.mu.Lock()
	d.acted = append(d.acted, m)
	d.mu.Unlock()

	_ = m.Start()
	if m.Ballistic() && d.ballisticDelay > 0 {
		go func() {
			time.Sleep(d.ballisticDelay)
			done(m, motor.PowerLevels{})
		}()
		return
	}
	done(m, motor.PowerLevels{})
}

func (d *recordingDispatcher) Acted() []*message.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*message.Message(nil), d.acted...)
}

type countingInterrupter struct {
	mu sync.Mutex
	n  int
}

func (c *countingInterrupter) Interrupt() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingInterrupter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type fixture struct {
	arb     *Arbitrator
	queue   *queue.PriorityQueue
	disp    *recordingDispatcher
	motors  *countingInterrupter
	factory *message.Factory
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Period = 2 * time.Millisecond
	cfg.BallisticPoll = 2 * time.Millisecond
	cfg.BallisticTimeout = time.Second
	f := &fixture{
		queue:   queue.New(queue.DefaultMaxSize),
		disp:    &recordingDispatcher{},
		motors:  &countingInterrupter{},
		factory: message.NewFactory(nil),
	}
	f.arb = New(cfg, f.queue, f.disp, f.motors)
	return f
}

func (f *fixture) msg(t testing.TB, k event.Kind, value any) *message.Message {
	t.Helper()
	m, err := f.factory.New(k, value)
	require.NoError(t, err)
	return m
}

func TestAccept_NilCandidateIsInvariant(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.arb.Accept(context.Background(), nil), ErrInvariant)
	assert.Nil(t, f.arb.Current())
}

func TestAccept_IdempotentReArrival(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.msg(t, event.PortVelocity, 0.2)
	require.NoError(t, f.arb.Accept(ctx, first))
	require.NoError(t, f.arb.Accept(ctx, f.msg(t, event.PortVelocity, 0.9)))

	assert.Len(t, f.disp.Acted(), 1)
	assert.Same(t, first, f.arb.Current())
	assert.Zero(t, f.motors.Count())
}

func TestAccept_BallisticIsNeverPreempted(t *testing.T) {
	f := newFixture(t)
	running := f.msg(t, event.BumperStbd, nil)
	require.NoError(t, running.Start())
	f.arb.current.Store(running)

	require.NoError(t, f.arb.Accept(context.Background(), f.msg(t, event.Shutdown, nil)))

	assert.Same(t, running, f.arb.Current())
	assert.Equal(t, message.ActionStarted, running.State())
	assert.Empty(t, f.disp.Acted())
	assert.Zero(t, f.motors.Count())
}

func TestAccept_CompletedBallisticIsReplaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bump := f.msg(t, event.BumperCntr, nil)
	require.NoError(t, f.arb.Accept(ctx, bump))
	require.True(t, bump.Completed())

	next := f.msg(t, event.FullAhead, nil)
	require.NoError(t, f.arb.Accept(ctx, next))
	assert.Same(t, next, f.arb.Current())
	assert.Equal(t, message.ActionCompleted, bump.State(), "ballistic action is not interrupted")
	assert.Zero(t, f.motors.Count())
}

// Scenario A: a bumper event preempts a non-ballistic velocity action and the
// loop waits for the bumper action to finish.
func TestAccept_BumperInterruptsVelocityAndBlocks(t *testing.T) {
	f := newFixture(t)
	f.disp.ballisticDelay = 40 * time.Millisecond
	ctx := context.Background()

	velocity := f.msg(t, event.PortVelocity, 0.5)
	require.NoError(t, f.arb.Accept(ctx, velocity))

	bumper := f.msg(t, event.BumperPort, nil)
	start := time.Now()
	require.NoError(t, f.arb.Accept(ctx, bumper))

	assert.GreaterOrEqual(t, time.Since(start), f.disp.ballisticDelay)
	assert.True(t, bumper.Completed())
	assert.Equal(t, message.ActionClosed, velocity.State())
	assert.Equal(t, 1, f.motors.Count())
	assert.Same(t, bumper, f.arb.Current())
}

func TestAccept_BallisticTimeoutClosesAction(t *testing.T) {
	f := newFixture(t)
	f.arb.cfg.BallisticTimeout = 20 * time.Millisecond
	f.disp.ballisticDelay = 200 * time.Millisecond

	stuck := f.msg(t, event.EmergencyAstern, nil)
	require.NoError(t, f.arb.Accept(context.Background(), stuck))
	assert.Equal(t, message.ActionClosed, stuck.State())
}

// Scenario B: SHUTDOWN outranks CLOCK_TICK in the same cycle.
func TestCycle_SelectsHighestPriority(t *testing.T) {
	f := newFixture(t)
	tick := f.msg(t, event.ClockTick, nil)
	shutdown := f.msg(t, event.Shutdown, nil)
	require.NoError(t, f.queue.Push(tick))
	require.NoError(t, f.queue.Push(shutdown))

	f.arb.runCycle(context.Background())

	acted := f.disp.Acted()
	require.Len(t, acted, 1)
	assert.Same(t, shutdown, acted[0])
	assert.Equal(t, message.ActionInit, tick.State())
	assert.Zero(t, f.queue.Size())
}

func TestCycle_DiscardsBeyondBatch(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		require.NoError(t, f.queue.Push(f.msg(t, event.ClockTick, nil)))
	}
	f.arb.runCycle(context.Background())
	assert.Zero(t, f.queue.Size())
	assert.Len(t, f.disp.Acted(), 1)
}

func TestCycle_SuppressedClearsQueue(t *testing.T) {
	f := newFixture(t)
	f.arb.SetSuppressed(true)
	require.NoError(t, f.queue.Push(f.msg(t, event.Stop, nil)))

	f.arb.runCycle(context.Background())
	assert.Zero(t, f.queue.Size())
	assert.Empty(t, f.disp.Acted())
	assert.True(t, f.arb.Suppressed())
}

func TestCycle_PriorityProperty(t *testing.T) {
	kinds := event.Default().Kinds()

	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		picked := rapid.SliceOfN(rapid.SampledFrom(kinds), 1, 20).Draw(rt, "kinds")

		var best *message.Message
		for _, k := range picked {
			m, err := f.factory.New(k, nil)
			if err != nil {
				rt.Fatalf("new: %v", err)
			}
			if err := f.queue.Push(m); err != nil {
				rt.Fatalf("push: %v", err)
			}
			if best == nil || m.Priority() < best.Priority() {
				best = m
			}
		}

		f.arb.runCycle(context.Background())

		acted := f.disp.Acted()
		if len(acted) != 1 || acted[0] != best {
			rt.Fatalf("accepted %v, want %v", acted, best)
		}
		if f.queue.Size() != 0 {
			rt.Fatalf("queue not drained: %d", f.queue.Size())
		}
	})
}

func TestCycle_IdleOnlyWithoutCurrentAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.arb.runCycle(ctx)
	f.arb.runCycle(ctx)
	assert.Equal(t, 2, f.arb.idle)

	require.NoError(t, f.queue.Push(f.msg(t, event.Button, nil)))
	f.arb.runCycle(ctx)
	require.NotNil(t, f.arb.Current())
	assert.Zero(t, f.arb.idle)

	f.arb.runCycle(ctx)
	f.arb.runCycle(ctx)
	assert.Zero(t, f.arb.idle, "empty cycles with a current action are not idle")
}
