// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/nerve/internal/arbitrator"
	"github.com/ManuGH/nerve/internal/bus"
	"github.com/ManuGH/nerve/internal/controller"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/metrics"
	"github.com/ManuGH/nerve/internal/motor"
	"github.com/ManuGH/nerve/internal/queue"
)

func newTestCore(t *testing.T, queueCap int) *Core {
	t.Helper()
	ctrl := controller.DefaultConfig()
	ctrl.Manoeuvre = time.Millisecond
	arb := arbitrator.DefaultConfig()
	arb.Period = 2 * time.Millisecond
	arb.BallisticPoll = time.Millisecond
	c, err := New(Config{
		QueueCapacity: queueCap,
		Arbitrator:    arb,
		Controller:    ctrl,
		Bus:           bus.Config{MaxAge: time.Second},
		Effects:       bus.EffectConfig{ProcessInterval: time.Millisecond},
	}, Deps{
		Motors: motor.NewSim(motor.SimConfig{SlewSteps: 2, SlewStep: time.Millisecond}),
		Store:  journal.NewMemoryStore(100),
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresMotors(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestPublish_UnknownKind(t *testing.T) {
	c := newTestCore(t, 10)
	_, err := c.Publish(context.Background(), event.Kind(9999), nil)
	assert.ErrorIs(t, err, event.ErrUnknownKind)
}

func TestPublish_BackPressure(t *testing.T) {
	c := newTestCore(t, 2)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.Publish(ctx, event.Button, nil)
		require.NoError(t, err)
	}
	rejected := metrics.QueueRejectedTotal.WithLabelValues("arbitration")
	before := testutil.ToFloat64(rejected)
	_, err := c.Publish(ctx, event.Button, nil)
	assert.ErrorIs(t, err, queue.ErrQueueFull)
	assert.Equal(t, 2, c.Status().QueueSize)
	assert.InDelta(t, before+1, testutil.ToFloat64(rejected), 1e-9)

	_, err = c.Publish(ctx, event.Button, nil)
	assert.ErrorIs(t, err, queue.ErrQueueFull)
	assert.InDelta(t, before+2, testutil.ToFloat64(rejected), 1e-9)
}

func TestRun_ArbitratesAndBroadcasts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := newTestCore(t, 10)
	_, err := c.RegisterSubscriber("safety", []event.Kind{event.BumperCntr})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	m, err := c.Publish(ctx, event.HalfAhead, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		cur := c.CurrentAction()
		return cur != nil && cur.ID() == m.ID() && cur.State() == message.ActionCompleted
	}, 2*time.Second, time.Millisecond)

	b, err := c.Broadcast(ctx, event.BumperCntr, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"garbage-collector", "safety"}, b.Pending())
	require.Eventually(t, b.Collected, 2*time.Second, time.Millisecond)

	n, err := c.Journal().Count(context.Background())
	require.NoError(t, err)
	if b.Saved() {
		assert.Equal(t, 1, n)
	}

	st := c.Status()
	require.NotNil(t, st.Current)
	assert.Equal(t, "HALF_AHEAD", st.Current.Event)
	assert.Equal(t, []string{"garbage-collector", "safety"}, st.Subscribers)

	require.NoError(t, c.Unregister("safety"))
	cancel()
	require.NoError(t, <-done)
}

func TestSinks(t *testing.T) {
	c := newTestCore(t, 10)
	ctx := context.Background()
	require.NoError(t, c.ArbitrationSink(ctx, event.Stop, nil))
	require.NoError(t, c.BroadcastSink(ctx, event.ClockTick, uint64(1)))
	assert.Equal(t, 1, c.Status().QueueSize)
	assert.Equal(t, 1, c.Status().BusInFlight)
}
