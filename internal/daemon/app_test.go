// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestApp_RequiresCollaborators(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, NewApp(zerolog.Nop(), nil, RunnerFunc(blockUntilDone)).Run(ctx), ErrMissingManager)
	assert.ErrorIs(t, NewApp(zerolog.Nop(), NewManager(ManagerConfig{}), nil).Run(ctx), ErrMissingCore)
}

func TestApp_HooksRunAfterSubsystems(t *testing.T) {
	defer goleak.VerifyNone(t)

	var coreStopped atomic.Bool
	core := RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		coreStopped.Store(true)
		return nil
	})

	m := NewManager(ManagerConfig{Logger: zerolog.Nop()})
	var stoppedAtHook atomic.Bool
	m.RegisterShutdownHook("journal", func(context.Context) error {
		stoppedAtHook.Store(coreStopped.Load())
		return nil
	})

	app := NewApp(zerolog.Nop(), m, core)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.True(t, stoppedAtHook.Load(), "hook ran before the core returned")
}

func TestApp_SubsystemFailureStopsAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("sensor bus unplugged")
	app := NewApp(zerolog.Nop(), NewManager(ManagerConfig{Logger: zerolog.Nop()}), RunnerFunc(blockUntilDone))
	app.Add("sensor", RunnerFunc(func(context.Context) error { return boom }))

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop after subsystem failure")
	}
}

func TestApp_CancelledSubsystemIsNotAnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	app := NewApp(zerolog.Nop(), NewManager(ManagerConfig{Logger: zerolog.Nop()}), RunnerFunc(blockUntilDone))
	app.Add("driver", RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, app.Run(ctx))
}
