// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package arbitrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/nerve/internal/controller"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/motor"
	"github.com/ManuGH/nerve/internal/queue"
)

func TestRun_DispatchesAndStops_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	motors := motor.NewSim(motor.SimConfig{SlewSteps: 2, SlewStep: time.Millisecond})
	ctrlCfg := controller.DefaultConfig()
	ctrlCfg.Manoeuvre = time.Millisecond
	ctrl := controller.New(ctrlCfg, motors)

	cfg := DefaultConfig()
	cfg.Period = 5 * time.Millisecond
	cfg.BallisticPoll = time.Millisecond
	q := queue.New(10)
	arb := New(cfg, q, ctrl, motors)
	factory := message.NewFactory(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- arb.Run(ctx) }()

	ahead, err := factory.New(event.HalfAhead, nil)
	require.NoError(t, err)
	require.NoError(t, q.Push(ahead))
	require.Eventually(t, func() bool { return arb.Current() == ahead && ahead.Completed() }, time.Second, time.Millisecond)
	require.True(t, motors.InMotion())

	bump, err := factory.New(event.BumperCntr, nil)
	require.NoError(t, err)
	require.NoError(t, q.Push(bump))
	require.Eventually(t, func() bool { return arb.Current() == bump && bump.Completed() }, time.Second, time.Millisecond)
	require.Equal(t, message.ActionClosed, ahead.State())
	require.False(t, motors.InMotion())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("arbitrator did not stop")
	}
}

func TestRun_DisabledLeavesQueue(t *testing.T) {
	q := queue.New(10)
	disp := &recordingDispatcher{}
	cfg := DefaultConfig()
	cfg.Period = time.Millisecond
	arb := New(cfg, q, disp, nil)
	arb.Disable()

	m, err := message.NewFactory(nil).New(event.Stop, nil)
	require.NoError(t, err)
	require.NoError(t, q.Push(m))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, arb.Run(ctx))
	require.Equal(t, 1, q.Size())
	require.Empty(t, disp.Acted())
	require.False(t, arb.Enabled())
}
