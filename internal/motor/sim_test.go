// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package motor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nerve/internal/event"
)

func TestSim_CommandAndStop(t *testing.T) {
	s := NewSim(SimConfig{SlewSteps: 3})
	ctx := context.Background()

	require.NoError(t, s.Command(ctx, event.OrientationPort, 0.5))
	assert.Equal(t, PowerLevels{Port: 0.5}, s.PowerLevels())
	assert.True(t, s.InMotion())

	require.NoError(t, s.Command(ctx, event.OrientationBoth, 2))
	assert.Equal(t, PowerLevels{Port: 1, Stbd: 1}, s.PowerLevels())

	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.InMotion())
}

func TestSim_DisabledRejectsCommands(t *testing.T) {
	s := NewSim(DefaultSimConfig())
	s.Disable()
	require.ErrorIs(t, s.Drive(context.Background(), 0.3, 0.3), ErrDisabled)
	assert.False(t, s.Enabled())

	s.Enable()
	require.NoError(t, s.Drive(context.Background(), 0.3, 0.3))
}

func TestSim_InterruptAbortsRamp(t *testing.T) {
	s := NewSim(SimConfig{SlewSteps: 100, SlewStep: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- s.Drive(context.Background(), 1, 1) }()

	require.Eventually(t, s.InMotion, time.Second, time.Millisecond)
	s.Interrupt()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("ramp did not stop after interrupt")
	}
	assert.Less(t, s.PowerLevels().Port, 1.0)
}

func TestSim_BrakeIsImmediate(t *testing.T) {
	s := NewSim(SimConfig{SlewSteps: 2})
	require.NoError(t, s.Drive(context.Background(), -0.4, 0.4))
	require.NoError(t, s.Brake(context.Background()))
	assert.Equal(t, PowerLevels{}, s.PowerLevels())
}

func TestSim_RejectsUnknownOrientation(t *testing.T) {
	s := NewSim(DefaultSimConfig())
	require.Error(t, s.Command(context.Background(), event.OrientationNone, 0.1))
}
